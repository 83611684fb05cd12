package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/gin-gonic/gin"
)

// DiscoveryController serves the .well-known documents.
type DiscoveryController struct {
	discovery services.DiscoveryService
}

func NewDiscoveryController(discovery services.DiscoveryService) *DiscoveryController {
	return &DiscoveryController{discovery: discovery}
}

// BaseURL is the externally visible origin of the request.
func (dc *DiscoveryController) BaseURL(c *gin.Context) string {
	return dc.discovery.BaseURL(c.Request.Host, c.GetHeader("X-Forwarded-Proto"))
}

// ResourceMetadataURL points bearer clients at the protected resource
// document. It is passed to middleware.BearerAuth.
func (dc *DiscoveryController) ResourceMetadataURL(c *gin.Context) string {
	return dc.BaseURL(c) + services.ProtectedResourcePath
}

// AuthorizationServer godoc
// @Summary OAuth2 authorization server metadata
// @Description RFC 8414 metadata, also served as the OpenID configuration
// @Tags Discovery
// @Produce json
// @Success 200 {object} services.AuthorizationServerMetadata
// @Router /.well-known/oauth-authorization-server [get]
// @Router /.well-known/openid-configuration [get]
func (dc *DiscoveryController) AuthorizationServer(c *gin.Context) {
	c.JSON(http.StatusOK, dc.discovery.AuthorizationServerMetadata(dc.BaseURL(c)))
}

// ProtectedResource godoc
// @Summary OAuth2 protected resource metadata
// @Description RFC 9728 metadata for the MCP endpoint
// @Tags Discovery
// @Produce json
// @Success 200 {object} services.ProtectedResourceMetadata
// @Router /.well-known/oauth-protected-resource [get]
func (dc *DiscoveryController) ProtectedResource(c *gin.Context) {
	c.JSON(http.StatusOK, dc.discovery.ProtectedResourceMetadata(dc.BaseURL(c)))
}

// Index godoc
// @Summary Discovery index
// @Description Links to every discovery document
// @Tags Discovery
// @Produce json
// @Success 200 {object} services.WellKnownIndex
// @Router /.well-known [get]
func (dc *DiscoveryController) Index(c *gin.Context) {
	c.JSON(http.StatusOK, dc.discovery.Index(dc.BaseURL(c)))
}
