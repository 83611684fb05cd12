package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/dispatcher"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/middleware"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/sse"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxMessageBytes bounds a JSON-RPC request body. Cover images arrive
// base64 encoded inside tool arguments.
const maxMessageBytes = 8 << 20

const legacyOAuthMessage = "This endpoint does not support OAuth2. Use /.mcp for OAuth2-protected access."

// MCPController exposes the dispatcher over plain HTTP.
type MCPController struct {
	dispatcher    *dispatcher.Dispatcher
	legacy        auth.CredentialResolver
	authenticator *auth.Authenticator
	metadataURL   middleware.ResourceMetadataFunc
}

func NewMCPController(d *dispatcher.Dispatcher, legacy auth.CredentialResolver, authenticator *auth.Authenticator, metadataURL middleware.ResourceMetadataFunc) *MCPController {
	return &MCPController{
		dispatcher:    d,
		legacy:        legacy,
		authenticator: authenticator,
		metadataURL:   metadataURL,
	}
}

// Handle godoc
// @Summary MCP JSON-RPC endpoint
// @Description Accepts one JSON-RPC 2.0 message. Notifications are answered with 202. With Accept: text/event-stream the response is sent as a single SSE message event.
// @Tags MCP
// @Accept json
// @Produce json
// @Param request body object true "JSON-RPC 2.0 request"
// @Success 200 {object} object "JSON-RPC response"
// @Success 202 "Notification accepted"
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /.mcp [post]
func (mc *MCPController) Handle(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}
	mc.serve(c, dispatcher.Call{Principal: principal})
}

// Probe answers HEAD /.mcp so clients can find out that the endpoint needs
// a bearer token before they send anything.
func (mc *MCPController) Probe(c *gin.Context) {
	if _, ok := middleware.BearerToken(c.GetHeader("Authorization")); !ok {
		c.Header("WWW-Authenticate", `Bearer resource_metadata="`+mc.metadataURL(c)+`"`)
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Status(http.StatusOK)
}

// HandleLegacy godoc
// @Summary Legacy MCP endpoint
// @Description JSON-RPC endpoint authenticated by the McpToken secret in the path. Requests that carry an Authorization header are rejected.
// @Tags MCP
// @Accept json
// @Produce json
// @Param token_id path string true "McpToken secret"
// @Param request body object true "JSON-RPC 2.0 request"
// @Success 200 {object} object "JSON-RPC response"
// @Failure 400 {object} object "OAuth2 credentials sent to the legacy endpoint"
// @Failure 403 {object} object "Token revoked"
// @Failure 404 {object} object "Token not found"
// @Router /.mcp/{token_id} [post]
func (mc *MCPController) HandleLegacy(c *gin.Context) {
	if c.GetHeader("Authorization") != "" {
		rpcErrorResponse(c, http.StatusBadRequest, mcp.INVALID_REQUEST, legacyOAuthMessage)
		return
	}

	principal, err := mc.legacy.Resolve(c.Request.Context(), c.Param("token_id"))
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		rpcErrorResponse(c, http.StatusForbidden, mcp.INVALID_REQUEST, "Token has been revoked")
		return
	case err != nil:
		log.WithError(err).Error("Legacy token lookup failed")
		rpcErrorResponse(c, http.StatusInternalServerError, mcp.INTERNAL_ERROR, "Internal error")
		return
	case principal == nil:
		rpcErrorResponse(c, http.StatusNotFound, mcp.INVALID_REQUEST, "Token not found")
		return
	}

	mc.authenticator.Touch(principal.McpTokenID)
	mc.serve(c, dispatcher.Call{Principal: principal})
}

func (mc *MCPController) serve(c *gin.Context, call dispatcher.Call) {
	body, ok := readMessage(c)
	if !ok {
		return
	}
	writeRPC(c, mc.dispatcher.Handle(c.Request.Context(), call, body))
}

// readMessage reads the request body, answering oversized or unreadable
// bodies itself.
func readMessage(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxMessageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rpcErrorResponse(c, http.StatusRequestEntityTooLarge, mcp.INVALID_REQUEST, "Request body too large")
			return nil, false
		}
		rpcErrorResponse(c, http.StatusBadRequest, mcp.PARSE_ERROR, "Parse error")
		return nil, false
	}
	return body, true
}

func rpcErrorResponse(c *gin.Context, status, code int, message string) {
	c.JSON(status, mcp.NewJSONRPCError(mcp.NewRequestId(nil), code, message, nil))
	c.Abort()
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// writeRPC sends a dispatcher response: 202 for notifications, otherwise
// JSON or a single SSE message event.
func writeRPC(c *gin.Context, resp mcp.JSONRPCMessage) {
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	if !wantsEventStream(c) {
		c.JSON(http.StatusOK, resp)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		log.WithError(err).Error("Failed to encode JSON-RPC response")
		c.Status(http.StatusInternalServerError)
		return
	}
	setStreamHeaders(c)
	c.Status(http.StatusOK)
	if err := sse.Encode(c.Writer, sse.Event{Name: sse.EventMessage, Data: data}); err != nil {
		log.WithError(err).Warn("Failed to write SSE response")
	}
}

func setStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}
