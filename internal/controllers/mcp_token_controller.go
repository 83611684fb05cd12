package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/middleware"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// McpTokenController lets users manage their own McpTokens.
type McpTokenController struct {
	mcpTokens services.McpTokenService
	sites     services.SiteService
	sessions  SessionCloser
	baseURL   func(c *gin.Context) string
	now       func() time.Time
}

// SessionCloser ends the streaming sessions opened with an McpToken.
type SessionCloser interface {
	RemoveByMcpToken(mcpTokenID string) int
}

func NewMcpTokenController(mcpTokens services.McpTokenService, sites services.SiteService, sessions SessionCloser, baseURL func(c *gin.Context) string) *McpTokenController {
	return &McpTokenController{
		mcpTokens: mcpTokens,
		sites:     sites,
		sessions:  sessions,
		baseURL:   baseURL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateMcpTokenRequest struct {
	Name   string `json:"name" binding:"required"`
	SiteID uint   `json:"site_id" binding:"required"`
}

type McpTokenResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SiteID     uint       `json:"site_id"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	// Token and LegacyURL are only set when the token is created.
	Token     string `json:"token,omitempty"`
	LegacyURL string `json:"legacy_url,omitempty"`
}

func newMcpTokenResponse(t *models.McpToken) McpTokenResponse {
	return McpTokenResponse{
		ID:         t.ID,
		Name:       t.Name,
		SiteID:     t.SiteID,
		CreatedAt:  t.CreatedAt,
		LastUsedAt: t.LastUsedAt,
		RevokedAt:  t.RevokedAt,
	}
}

// ListTokens godoc
// @Summary List MCP tokens
// @Description Tokens of the logged in user, newest first, including revoked ones
// @Tags MCP Tokens
// @Produce json
// @Success 200 {array} McpTokenResponse
// @Failure 401 {object} models.APIError
// @Router /.admin/mcp-tokens [get]
func (tc *McpTokenController) ListTokens(c *gin.Context) {
	list, err := tc.mcpTokens.FindByUser(c.Request.Context(), c.GetUint(middleware.ContextUserID))
	if err != nil {
		log.WithError(err).Error("Failed to list mcp tokens")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to retrieve tokens"))
		return
	}

	out := make([]McpTokenResponse, 0, len(list))
	for i := range list {
		out = append(out, newMcpTokenResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreateToken godoc
// @Summary Create MCP token
// @Description Creates a token granting an agent access to one site. The secret is returned once.
// @Tags MCP Tokens
// @Accept json
// @Produce json
// @Param token body CreateMcpTokenRequest true "Token name and site"
// @Success 201 {object} McpTokenResponse
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError "Unknown site"
// @Router /.admin/mcp-tokens [post]
func (tc *McpTokenController) CreateToken(c *gin.Context) {
	var req CreateMcpTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, err.Error()))
		return
	}
	if err := models.ValidateMcpTokenName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, err.Error()))
		return
	}

	ctx := c.Request.Context()
	site, err := tc.sites.GetSiteByID(ctx, req.SiteID)
	if err != nil {
		log.WithError(err).Error("Failed to load site")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to create token"))
		return
	}
	if site == nil {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "site not found"))
		return
	}

	userID := c.GetUint(middleware.ContextUserID)
	token, secret, err := tc.mcpTokens.Create(ctx, userID, site.ID, req.Name)
	if err != nil {
		log.WithError(err).Error("Failed to create mcp token")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to create token"))
		return
	}

	log.WithFields(logrus.Fields{
		"mcp_token_id": token.ID,
		"user_id":      userID,
		"site_id":      site.ID,
	}).Info("MCP token created")

	resp := newMcpTokenResponse(token)
	resp.Token = secret
	resp.LegacyURL = tc.baseURL(c) + services.MCPPath + "/" + secret
	c.JSON(http.StatusCreated, resp)
}

// RevokeToken godoc
// @Summary Revoke MCP token
// @Description Revokes the token, deletes every access and refresh token issued under it and closes its SSE sessions
// @Tags MCP Tokens
// @Param id path string true "Token ID"
// @Success 204 "Token revoked"
// @Failure 404 {object} models.APIError "Token not found"
// @Router /.admin/mcp-tokens/{id} [delete]
func (tc *McpTokenController) RevokeToken(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	token, err := tc.mcpTokens.FindByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to load mcp token")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to revoke token"))
		return
	}
	// Tokens of other users are reported as missing.
	if token == nil || token.UserID != c.GetUint(middleware.ContextUserID) {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "token not found"))
		return
	}

	if err := tc.mcpTokens.Revoke(ctx, id, tc.now()); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "token not found"))
			return
		}
		log.WithError(err).Error("Failed to revoke mcp token")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to revoke token"))
		return
	}

	closed := tc.sessions.RemoveByMcpToken(id)
	log.WithFields(logrus.Fields{
		"mcp_token_id":    id,
		"closed_sessions": closed,
	}).Info("MCP token revoked")
	c.Status(http.StatusNoContent)
}
