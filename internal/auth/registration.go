package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/tokens"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationRequest is the RFC 7591 client metadata we accept.
type RegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
}

type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	Scope                   string   `json:"scope"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

var (
	allowedGrantTypes    = []string{oauth2.AuthorizationCode.String(), oauth2.Refreshing.String()}
	allowedResponseTypes = []string{oauth2.Code.String()}
	allowedAuthMethods   = []string{models.AuthMethodClientSecretBasic, models.AuthMethodClientSecretPost, models.AuthMethodNone}
)

// RegisterClient validates client metadata and stores a new client. The
// plain secret is only part of the returned response. ownerID is set when
// an administrator creates the client.
func (o *OAuthService) RegisterClient(ctx context.Context, req RegistrationRequest, ownerID *uint) (*RegistrationResponse, *OAuthError) {
	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		return nil, &OAuthError{Err: errInvalidClientMetadata, Description: "client_name is required"}
	}
	if len(req.RedirectURIs) == 0 {
		return nil, &OAuthError{Err: errInvalidRedirectURI, Description: "at least one redirect_uri is required"}
	}
	for _, uri := range req.RedirectURIs {
		if err := ValidateRedirectURI(uri); err != nil {
			return nil, &OAuthError{Err: errInvalidRedirectURI, Description: strings.TrimPrefix(err.Error(), errInvalidRedirectURI.Error()+": ")}
		}
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{oauth2.AuthorizationCode.String()}
	}
	for _, g := range grantTypes {
		if !slices.Contains(allowedGrantTypes, g) {
			return nil, &OAuthError{Err: errInvalidClientMetadata, Description: "unsupported grant_type " + g}
		}
	}
	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = allowedResponseTypes
	}
	for _, r := range responseTypes {
		if !slices.Contains(allowedResponseTypes, r) {
			return nil, &OAuthError{Err: errInvalidClientMetadata, Description: "unsupported response_type " + r}
		}
	}

	scope, ok := resolveScope(req.Scope, models.DefaultClientScope)
	if !ok {
		return nil, &OAuthError{Err: errInvalidClientMetadata, Description: "unsupported scope"}
	}

	method := req.TokenEndpointAuthMethod
	if method == "" {
		method = models.AuthMethodClientSecretBasic
	}
	if !slices.Contains(allowedAuthMethods, method) {
		return nil, &OAuthError{Err: errInvalidClientMetadata, Description: "unsupported token_endpoint_auth_method " + method}
	}

	client := &models.OAuthClient{
		ID:                      uuid.NewString(),
		Name:                    name,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		Scope:                   scope,
		TokenEndpointAuthMethod: method,
		UserID:                  ownerID,
	}

	var secret string
	if method != models.AuthMethodNone {
		var err error
		secret, err = tokens.GenerateSecureToken(tokens.SecretLength)
		if err != nil {
			return nil, asOAuthError(err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, asOAuthError(err)
		}
		h := string(hash)
		client.SecretHash = &h
	}

	if err := o.clients.CreateClient(ctx, client); err != nil {
		log.WithError(err).Error("Failed to store client")
		return nil, asOAuthError(err)
	}

	log.WithField("client_id", client.ID).Info("Client registered")
	return &RegistrationResponse{
		ClientID:                client.ID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		ClientSecretExpiresAt:   0,
		ClientName:              client.Name,
		RedirectURIs:            client.RedirectURIs,
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		Scope:                   client.Scope,
		TokenEndpointAuthMethod: client.TokenEndpointAuthMethod,
	}, nil
}

// HandleRegister implements dynamic client registration (RFC 7591)
// @Summary Register a client
// @Description Registers a new OAuth2 client. The client_secret is returned once.
// @Tags OAuth2
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Client metadata"
// @Success 201 {object} RegistrationResponse
// @Failure 400 {object} models.OAuth2Error
// @Router /.oauth/register [post]
func (o *OAuthService) HandleRegister(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithOAuthError(c, &OAuthError{Err: errInvalidClientMetadata, Description: "request body must be a JSON client metadata document"})
		return
	}

	resp, oerr := o.RegisterClient(c.Request.Context(), req, nil)
	if oerr != nil {
		respondWithOAuthError(c, oerr)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, resp)
}
