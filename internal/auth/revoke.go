package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
)

// HandleRevoke revokes an access or refresh token (RFC 7009)
// @Summary Token revocation
// @Description Revokes a token owned by the authenticated client. Unknown tokens are accepted silently.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Param token formData string true "Token to revoke"
// @Param token_type_hint formData string false "access_token or refresh_token"
// @Success 200 {string} string ""
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /.oauth/revoke [post]
func (o *OAuthService) HandleRevoke(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		respondWithOAuthError(c, newOAuthError(oauth2errors.ErrInvalidRequest, "malformed request body"))
		return
	}

	client, usedBasic, oerr := o.authenticateClient(c)
	if oerr != nil {
		respondClientError(c, oerr, usedBasic)
		return
	}

	token := c.PostForm("token")
	if token == "" {
		respondWithOAuthError(c, newOAuthError(oauth2errors.ErrInvalidRequest, "token is required"))
		return
	}

	if err := o.issuer.Revoke(c.Request.Context(), client.ID, token, c.PostForm("token_type_hint")); err != nil {
		log.WithError(err).WithField("client_id", client.ID).Error("Token revocation failed")
		respondWithOAuthError(c, asOAuthError(err))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
}
