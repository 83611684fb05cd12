package auth

import (
	"net/http"
	"net/url"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/gin-gonic/gin"
)

// LoginPath is where unauthenticated users are sent from the authorize step.
const LoginPath = "/.login"

// OAuthService serves the authorization server endpoints: authorize,
// token, revoke and dynamic client registration.
type OAuthService struct {
	issuer    *Issuer
	clients   services.ClientService
	mcpTokens services.McpTokenService
	sessions  *SessionSigner
}

func NewOAuthService(issuer *Issuer, clients services.ClientService, mcpTokens services.McpTokenService, sessions *SessionSigner) *OAuthService {
	return &OAuthService{
		issuer:    issuer,
		clients:   clients,
		mcpTokens: mcpTokens,
		sessions:  sessions,
	}
}

func (o *OAuthService) Issuer() *Issuer {
	return o.issuer
}

// respondWithOAuthError writes an RFC 6749 error body with its status code.
func respondWithOAuthError(c *gin.Context, oerr *OAuthError) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(oerr.Status(), oerr.Response())
	c.Abort()
}

// redirectWithParams adds params to redirectURI's query and redirects there.
func redirectWithParams(c *gin.Context, redirectURI string, params url.Values) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest, "invalid redirect_uri"))
		return
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Set(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, u.String())
}

// redirectWithError reports an authorize error to the client's (already
// verified) redirect URI.
func redirectWithError(c *gin.Context, redirectURI, state string, oerr *OAuthError) {
	body := oerr.Response()
	redirectWithParams(c, redirectURI, url.Values{
		"error":             {body.Error},
		"error_description": {body.ErrorDescription},
		"state":             {state},
	})
}

// currentUserID reads the user set by the session middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
