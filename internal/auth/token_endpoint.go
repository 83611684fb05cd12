package auth

import (
	"net/http"
	"net/url"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/server"
	"golang.org/x/crypto/bcrypt"
)

// authenticateClient identifies the client from HTTP Basic credentials or,
// failing that, from client_id/client_secret form fields. usedBasic tells the
// caller whether to send a Basic challenge on failure.
func (o *OAuthService) authenticateClient(c *gin.Context) (client *models.OAuthClient, usedBasic bool, oerr *OAuthError) {
	clientID, secret, err := server.ClientBasicHandler(c.Request)
	if err == nil {
		usedBasic = true
		// Basic credentials are form-encoded before base64 (RFC 6749 2.3.1).
		if v, uerr := url.QueryUnescape(clientID); uerr == nil {
			clientID = v
		}
		if v, uerr := url.QueryUnescape(secret); uerr == nil {
			secret = v
		}
	} else {
		clientID, secret, err = server.ClientFormHandler(c.Request)
		if err != nil {
			return nil, false, newOAuthError(oauth2errors.ErrInvalidClient, "client authentication required")
		}
	}

	client, err = o.clients.GetClientByID(c.Request.Context(), clientID)
	if err != nil {
		log.WithError(err).Error("Failed to load client")
		return nil, usedBasic, asOAuthError(err)
	}
	if client == nil {
		return nil, usedBasic, newOAuthError(oauth2errors.ErrInvalidClient, "client authentication failed")
	}
	if client.IsPublic() {
		return client, usedBasic, nil
	}
	if secret == "" || bcrypt.CompareHashAndPassword([]byte(*client.SecretHash), []byte(secret)) != nil {
		return nil, usedBasic, newOAuthError(oauth2errors.ErrInvalidClient, "client authentication failed")
	}
	return client, usedBasic, nil
}

func respondClientError(c *gin.Context, oerr *OAuthError, usedBasic bool) {
	if usedBasic && oerr.Code() == models.ErrInvalidClient {
		c.Header("WWW-Authenticate", `Basic realm="oauth"`)
	}
	respondWithOAuthError(c, oerr)
}

// HandleToken handles the token endpoint for the authorization_code and refresh_token grants
// @Summary Token Endpoint
// @Description Exchange an authorization code (with PKCE verifier) or a refresh token for a new access/refresh token pair
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "authorization_code or refresh_token"
// @Param client_id formData string false "Client ID (when not using HTTP Basic)"
// @Param client_secret formData string false "Client secret (confidential clients, when not using HTTP Basic)"
// @Param code formData string false "Authorization code (authorization_code grant)"
// @Param redirect_uri formData string false "Redirect URI used at the authorize step (authorization_code grant)"
// @Param code_verifier formData string false "PKCE verifier (authorization_code grant)"
// @Param refresh_token formData string false "Refresh token (refresh_token grant)"
// @Param scope formData string false "Narrower scope (refresh_token grant)"
// @Success 200 {object} TokenPair
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /.oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		respondWithOAuthError(c, newOAuthError(oauth2errors.ErrInvalidRequest, "malformed request body"))
		return
	}

	client, usedBasic, oerr := o.authenticateClient(c)
	if oerr != nil {
		respondClientError(c, oerr, usedBasic)
		return
	}

	grantType := oauth2.GrantType(c.PostForm("grant_type"))
	var pair *TokenPair
	var err error

	switch grantType {
	case oauth2.AuthorizationCode:
		if !client.AllowsGrant(grantType.String()) {
			respondWithOAuthError(c, newOAuthError(oauth2errors.ErrUnauthorizedClient, "client may not use the authorization_code grant"))
			return
		}
		code := c.PostForm("code")
		if code == "" {
			respondWithOAuthError(c, newOAuthError(oauth2errors.ErrInvalidRequest, "code is required"))
			return
		}
		pair, err = o.issuer.RedeemCode(c.Request.Context(), RedeemCodeRequest{
			Code:         code,
			ClientID:     client.ID,
			RedirectURI:  c.PostForm("redirect_uri"),
			CodeVerifier: c.PostForm("code_verifier"),
		})
	case oauth2.Refreshing:
		if !client.AllowsGrant(grantType.String()) {
			respondWithOAuthError(c, newOAuthError(oauth2errors.ErrUnauthorizedClient, "client may not use the refresh_token grant"))
			return
		}
		refresh := c.PostForm("refresh_token")
		if refresh == "" {
			respondWithOAuthError(c, newOAuthError(oauth2errors.ErrInvalidRequest, "refresh_token is required"))
			return
		}
		pair, err = o.issuer.RedeemRefresh(c.Request.Context(), RefreshRequest{
			RefreshToken: refresh,
			ClientID:     client.ID,
			Scope:        c.PostForm("scope"),
		})
	case "":
		respondWithOAuthError(c, newOAuthError(oauth2errors.ErrInvalidRequest, "grant_type is required"))
		return
	default:
		respondWithOAuthError(c, newOAuthError(oauth2errors.ErrUnsupportedGrantType, "grant_type %q is not supported", string(grantType)))
		return
	}

	if err != nil {
		oerr := asOAuthError(err)
		if oerr.Status() >= http.StatusInternalServerError {
			log.WithError(err).WithField("client_id", client.ID).Error("Token request failed")
		}
		respondWithOAuthError(c, oerr)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, pair)
}
