package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BearerAuthenticator resolves a raw bearer credential. *auth.Authenticator
// implements it.
type BearerAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*auth.Principal, error)
}

// ResourceMetadataFunc returns the protected resource metadata URL for the
// request, advertised to callers without credentials.
type ResourceMetadataFunc func(c *gin.Context) string

const invalidTokenDescription = "The access token is invalid, expired or revoked"

// BearerToken extracts the credential of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerAuth authenticates the request with the bearer chain and stores the
// Principal on the context.
func BearerAuth(authenticator BearerAuthenticator, metadataURL ResourceMetadataFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", fmt.Sprintf(`Bearer resource_metadata="%s"`, metadataURL(c)))
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken,
				"Missing or malformed Authorization header. Format: 'Bearer <token>'")
			return
		}

		principal, err := authenticator.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				c.Header("WWW-Authenticate", fmt.Sprintf(`Bearer error="%s", error_description="%s"`,
					models.ErrInvalidToken, invalidTokenDescription))
				respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, invalidTokenDescription)
				return
			}
			log.WithError(err).Error("Bearer authentication failed")
			respondWithOAuth2Error(c, http.StatusInternalServerError, models.ErrServerError, "Failed to validate the access token")
			return
		}

		log.WithFields(logrus.Fields{
			"mcp_token_id": principal.McpTokenID,
			"client_id":    principal.ClientID,
			"method":       principal.Method,
		}).Debug("Bearer authenticated")

		c.Set(ContextPrincipal, principal)
		c.Set(ContextUserID, principal.UserID)
		c.Next()
	}
}

// PrincipalFrom returns the Principal stored by BearerAuth.
func PrincipalFrom(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

// RequireScope rejects principals without scope with 403 insufficient_scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, "Request is not authenticated")
			return
		}
		if !p.HasScope(scope) {
			c.Header("WWW-Authenticate", fmt.Sprintf(`Bearer error="%s", scope="%s"`, models.ErrInsufficientScope, scope))
			respondWithOAuth2Error(c, http.StatusForbidden, models.ErrInsufficientScope,
				fmt.Sprintf("The request requires the %s scope", scope))
			return
		}
		c.Next()
	}
}
