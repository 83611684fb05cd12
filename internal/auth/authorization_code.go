package auth

import (
	"net/http"
	"net/url"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/sirupsen/logrus"
)

type authorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// RequestedRedirectURI is the redirect_uri as sent, empty when the
	// client relied on its single registered URI.
	RequestedRedirectURI string
}

func readAuthorizeRequest(c *gin.Context) authorizeRequest {
	get := c.Query
	if c.Request.Method == http.MethodPost {
		get = c.PostForm
	}
	return authorizeRequest{
		ClientID:             get("client_id"),
		RedirectURI:          get("redirect_uri"),
		RequestedRedirectURI: get("redirect_uri"),
		ResponseType:         get("response_type"),
		Scope:                get("scope"),
		State:                get("state"),
		CodeChallenge:        get("code_challenge"),
		CodeChallengeMethod:  get("code_challenge_method"),
	}
}

// validateAuthorizeRequest checks the request and writes the error response
// itself when it returns nil. Problems with the client or the redirect URI
// are answered directly; anything else goes back to the client's redirect
// URI.
func (o *OAuthService) validateAuthorizeRequest(c *gin.Context, req *authorizeRequest) *models.OAuthClient {
	if req.ClientID == "" {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest, "client_id is required"))
		return nil
	}
	client, err := o.clients.GetClientByID(c.Request.Context(), req.ClientID)
	if err != nil {
		log.WithError(err).Error("Failed to load client")
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error(models.ErrServerError, "failed to load client"))
		return nil
	}
	if client == nil {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidClient, "unknown client"))
		return nil
	}

	if req.RedirectURI == "" && len(client.RedirectURIs) == 1 {
		req.RedirectURI = client.RedirectURIs[0]
	}
	if !MatchRedirectURI(client.RedirectURIs, req.RedirectURI) {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest, "redirect_uri is not registered for this client"))
		return nil
	}

	if oauth2.ResponseType(req.ResponseType) != oauth2.Code {
		redirectWithError(c, req.RedirectURI, req.State,
			newOAuthError(oauth2errors.ErrUnsupportedResponseType, "only response_type=code is supported"))
		return nil
	}
	if !client.AllowsGrant(oauth2.AuthorizationCode.String()) {
		redirectWithError(c, req.RedirectURI, req.State,
			newOAuthError(oauth2errors.ErrUnauthorizedClient, "client is not allowed to use the authorization_code grant"))
		return nil
	}
	if oerr := ValidatePKCEParams(req.CodeChallenge, req.CodeChallengeMethod); oerr != nil {
		redirectWithError(c, req.RedirectURI, req.State, oerr)
		return nil
	}
	if client.IsPublic() && req.CodeChallenge == "" {
		redirectWithError(c, req.RedirectURI, req.State,
			newOAuthError(oauth2errors.ErrInvalidRequest, "public clients must use PKCE (code_challenge with S256)"))
		return nil
	}
	scope, ok := resolveScope(req.Scope, client.Scope)
	if !ok {
		redirectWithError(c, req.RedirectURI, req.State,
			newOAuthError(oauth2errors.ErrInvalidScope, "requested scope is not allowed for this client"))
		return nil
	}
	req.Scope = scope
	return client
}

// HandleAuthorize validates an authorization request and renders the consent page
// @Summary Authorization endpoint
// @Description Validates the authorization request and shows the consent page. Unauthenticated users are redirected to the login page.
// @Tags OAuth2
// @Produce html
// @Param response_type query string true "Must be code"
// @Param client_id query string true "Client ID"
// @Param redirect_uri query string false "Registered redirect URI"
// @Param scope query string false "Space separated scopes"
// @Param state query string false "Opaque client state"
// @Param code_challenge query string false "PKCE challenge (required for public clients)"
// @Param code_challenge_method query string false "Must be S256"
// @Success 200 {string} string "consent page"
// @Failure 302 {string} string "redirect to login or to the client with an error"
// @Failure 400 {object} models.OAuth2Error
// @Router /.oauth/authorize [get]
func (o *OAuthService) HandleAuthorize(c *gin.Context) {
	req := readAuthorizeRequest(c)
	client := o.validateAuthorizeRequest(c, &req)
	if client == nil {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, LoginPath+"?return_to="+url.QueryEscape(c.Request.URL.RequestURI()))
		return
	}

	list, err := o.mcpTokens.FindByUser(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Error("Failed to list mcp tokens")
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error(models.ErrServerError, "failed to load tokens"))
		return
	}
	valid := list[:0]
	for _, t := range list {
		if t.IsValid() {
			valid = append(valid, t)
		}
	}

	csrf, err := o.sessions.IssueCSRF(userID, client.ID)
	if err != nil {
		log.WithError(err).Error("Failed to issue CSRF token")
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error(models.ErrServerError, "failed to render consent"))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "consent.html", gin.H{
		"ClientName":           client.Name,
		"ClientID":             client.ID,
		"RedirectURI":          req.RedirectURI,
		"RequestedRedirectURI": req.RequestedRedirectURI,
		"ResponseType":         req.ResponseType,
		"Scope":                req.Scope,
		"Scopes":               ParseScope(req.Scope),
		"State":                req.State,
		"CodeChallenge":        req.CodeChallenge,
		"CodeChallengeMethod":  req.CodeChallengeMethod,
		"CSRFToken":            csrf,
		"Tokens":               valid,
	})
}

// HandleAuthorizeDecision processes the consent form
// @Summary Authorization decision
// @Description Approves or denies an authorization request. On approval the user agent is redirected with code and state.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Param action formData string true "approve or deny"
// @Param mcp_token_id formData string false "McpToken granted to the client (required on approve)"
// @Param csrf_token formData string true "CSRF token from the consent page"
// @Failure 302 {string} string "redirect to the client"
// @Failure 400 {object} models.OAuth2Error
// @Failure 403 {object} models.OAuth2Error
// @Router /.oauth/authorize [post]
func (o *OAuthService) HandleAuthorizeDecision(c *gin.Context) {
	req := readAuthorizeRequest(c)
	client := o.validateAuthorizeRequest(c, &req)
	if client == nil {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewOAuth2Error(models.ErrAccessDenied, "login required"))
		return
	}
	if !o.sessions.VerifyCSRF(c.PostForm("csrf_token"), userID, client.ID) {
		c.JSON(http.StatusForbidden, models.NewOAuth2Error(models.ErrInvalidRequest, "invalid or expired CSRF token"))
		return
	}

	entry := log.WithFields(logrus.Fields{"client_id": client.ID, "user_id": userID})
	if c.PostForm("action") != "approve" {
		entry.Info("Authorization denied by user")
		redirectWithError(c, req.RedirectURI, req.State,
			newOAuthError(oauth2errors.ErrAccessDenied, "the user denied the request"))
		return
	}

	mt, err := o.mcpTokens.FindByID(c.Request.Context(), c.PostForm("mcp_token_id"))
	if err != nil {
		entry.WithError(err).Error("Failed to load mcp token")
		redirectWithError(c, req.RedirectURI, req.State, asOAuthError(err))
		return
	}
	if mt == nil || mt.UserID != userID || !mt.IsValid() {
		c.JSON(http.StatusForbidden, models.NewOAuth2Error(models.ErrAccessDenied, "the selected token is not available"))
		return
	}

	code, err := o.issuer.IssueCode(c.Request.Context(), IssueCodeRequest{
		ClientID:            client.ID,
		UserID:              userID,
		McpTokenID:          mt.ID,
		RedirectURI:         req.RequestedRedirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		entry.WithError(err).Error("Failed to issue authorization code")
		redirectWithError(c, req.RedirectURI, req.State, asOAuthError(err))
		return
	}

	redirectWithParams(c, req.RedirectURI, url.Values{
		"code":  {code.Code},
		"state": {req.State},
	})
}
