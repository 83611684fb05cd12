package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/middleware"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/gin-gonic/gin"
)

// ClientController is the administrator's view of the OAuth2 clients.
type ClientController struct {
	clientService services.ClientService
	oauth         *auth.OAuthService
}

func NewClientController(clientService services.ClientService, oauth *auth.OAuthService) *ClientController {
	return &ClientController{clientService: clientService, oauth: oauth}
}

// CreateClient godoc
// @Summary Create OAuth2 client
// @Description Register a client owned by the administrator. Takes the same metadata as dynamic registration.
// @Tags OAuth2 Clients
// @Accept json
// @Produce json
// @Param client body auth.RegistrationRequest true "Client metadata"
// @Success 201 {object} auth.RegistrationResponse "Client created; client_secret is only returned here"
// @Failure 400 {object} models.OAuth2Error "Invalid metadata"
// @Failure 500 {object} models.OAuth2Error "Client creation failed"
// @Router /.admin/clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	var req auth.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidClientMetadata, err.Error()))
		return
	}

	ownerID := c.GetUint(middleware.ContextUserID)
	resp, oerr := cc.oauth.RegisterClient(c.Request.Context(), req, &ownerID)
	if oerr != nil {
		c.JSON(oerr.Status(), oerr.Response())
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListClients godoc
// @Summary List OAuth2 clients
// @Description Get every registered OAuth2 client
// @Tags OAuth2 Clients
// @Produce json
// @Success 200 {array} models.OAuthClient "List of clients"
// @Failure 500 {object} models.APIError "Failed to retrieve clients"
// @Router /.admin/clients [get]
func (cc *ClientController) ListClients(c *gin.Context) {
	clients, err := cc.clientService.ListClients(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list clients")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to retrieve clients"))
		return
	}

	c.JSON(http.StatusOK, clients)
}

// DeleteClient godoc
// @Summary Delete OAuth2 client
// @Description Delete an OAuth2 client. Tokens it already holds stay valid until they expire or are revoked.
// @Tags OAuth2 Clients
// @Param id path string true "Client ID"
// @Success 204 "Client deleted successfully"
// @Failure 404 {object} models.APIError "Client not found"
// @Router /.admin/clients/{id} [delete]
func (cc *ClientController) DeleteClient(c *gin.Context) {
	clientID := c.Param("id")

	if err := cc.clientService.DeleteClient(c.Request.Context(), clientID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "client not found"))
			return
		}
		log.WithError(err).Error("Failed to delete client")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to delete client"))
		return
	}

	c.Status(http.StatusNoContent)
}
