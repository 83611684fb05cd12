package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/config"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/dispatcher"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/middleware"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/sse"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SSEMessagesPath receives the messages of an SSE session.
const SSEMessagesPath = "/.sse/messages"

const defaultKeepAlive = 30 * time.Second

// SSEController serves the SSE transport: a long-lived event stream plus a
// POST endpoint for the client's messages.
type SSEController struct {
	dispatcher    *dispatcher.Dispatcher
	sessions      *sse.Manager
	authenticator middleware.BearerAuthenticator
	mcpTokens     McpTokenFinder
	keepAlive     time.Duration
	responseMode  string
}

// McpTokenFinder loads the McpToken a session was opened with.
type McpTokenFinder interface {
	FindByID(ctx context.Context, id string) (*models.McpToken, error)
}

func NewSSEController(d *dispatcher.Dispatcher, sessions *sse.Manager, authenticator middleware.BearerAuthenticator, mcpTokens McpTokenFinder, keepAlive time.Duration, responseMode string) *SSEController {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	if responseMode != config.SSEResponseStream {
		responseMode = config.SSEResponseSync
	}
	return &SSEController{
		dispatcher:    d,
		sessions:      sessions,
		authenticator: authenticator,
		mcpTokens:     mcpTokens,
		keepAlive:     keepAlive,
		responseMode:  responseMode,
	}
}

// Stream godoc
// @Summary Open an MCP SSE stream
// @Description Sends an endpoint event with the URL to post messages to, then keep-alive comments and, in stream mode, the responses.
// @Tags MCP
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Failure 401 {object} models.OAuth2Error
// @Failure 503 {object} models.APIError "Too many open sessions"
// @Security BearerAuth
// @Router /.sse [get]
// @Router /.mcp/sse [get]
func (sc *SSEController) Stream(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	session, err := sc.sessions.Register(principal)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, models.NewAPIError(models.ErrInternalServer, "Cannot open another SSE session"))
		return
	}
	defer sc.sessions.Remove(session.ID)

	entry := log.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"mcp_token_id": session.McpTokenID(),
	})
	entry.Info("SSE stream opened")
	defer entry.Info("SSE stream closed")

	setStreamHeaders(c)
	c.Status(http.StatusOK)

	endpoint := sse.Event{Name: sse.EventEndpoint, Data: SSEMessagesPath + "?session_id=" + session.ID}
	if err := sse.Encode(c.Writer, endpoint); err != nil {
		return
	}
	c.Writer.Flush()

	ticker := time.NewTicker(sc.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Done():
			return
		case e := <-session.Events():
			if err := sse.Encode(c.Writer, e); err != nil {
				entry.WithError(err).Debug("SSE write failed")
				return
			}
			c.Writer.Flush()
		case <-ticker.C:
			if err := sse.KeepAlive(c.Writer); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// Messages godoc
// @Summary Post a message to an SSE session
// @Description In sync mode the JSON-RPC response is returned in the body; in stream mode it is pushed on the event stream and the request is answered with 202.
// @Tags MCP
// @Accept json
// @Produce json
// @Param session_id query string true "Session ID from the endpoint event"
// @Param request body object true "JSON-RPC 2.0 request"
// @Success 200 {object} object "JSON-RPC response (sync mode)"
// @Success 202 "Accepted"
// @Failure 400 {object} models.APIError "Missing or unknown session"
// @Failure 403 {object} models.APIError "Credentials do not match the session or the token was revoked"
// @Router /.sse/messages [post]
func (sc *SSEController) Messages(c *gin.Context) {
	id := c.Query("session_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "session_id is required"))
		return
	}
	session, ok := sc.sessions.Lookup(id)
	if !ok {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Unknown session_id; the session may have expired"))
		return
	}

	if header := c.GetHeader("Authorization"); header != "" {
		if !sc.sameToken(c, header, session) {
			return
		}
	}
	if !sc.tokenActive(c, session) {
		return
	}

	body, ok := readMessage(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	resp := sc.dispatcher.Handle(ctx, dispatcher.Call{Principal: session.Principal, Session: session}, body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	if sc.responseMode == config.SSEResponseSync {
		c.JSON(http.StatusOK, resp)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		log.WithError(err).Error("Failed to encode JSON-RPC response")
		c.Status(http.StatusInternalServerError)
		return
	}
	if err := session.Send(ctx, sse.Event{Name: sse.EventMessage, Data: data}); err != nil {
		if errors.Is(err, sse.ErrSessionClosed) {
			c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Session closed"))
			return
		}
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.Status(http.StatusAccepted)
}

// tokenActive closes the session when its McpToken was revoked after the
// stream was opened. It answers the request itself when it returns false.
func (sc *SSEController) tokenActive(c *gin.Context, session *sse.Session) bool {
	mt, err := sc.mcpTokens.FindByID(c.Request.Context(), session.McpTokenID())
	if err != nil {
		log.WithError(err).WithField("session_id", session.ID).Error("Failed to load the session's mcp token")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to validate the session"))
		return false
	}
	if mt == nil || !mt.IsValid() {
		sc.sessions.Remove(session.ID)
		log.WithField("session_id", session.ID).Info("Closed SSE session of a revoked token")
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "The token behind this session was revoked"))
		return false
	}
	return true
}

// sameToken checks that an Authorization header on a session message
// belongs to the McpToken that opened the session. It answers the request
// itself when it returns false.
func (sc *SSEController) sameToken(c *gin.Context, header string, session *sse.Session) bool {
	raw, ok := middleware.BearerToken(header)
	if !ok {
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "Authorization must be a Bearer token"))
		return false
	}
	principal, err := sc.authenticator.Authenticate(c.Request.Context(), raw)
	if err != nil || principal == nil || principal.McpTokenID != session.McpTokenID() {
		log.WithField("session_id", session.ID).Warn("Rejected SSE message with credentials of another token")
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "Credentials do not match the session"))
		return false
	}
	return true
}
