package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

const (
	ServerName = "doxyde-mcp"

	// fallbackProtocolVersion is answered when the client asks for a version
	// we do not know.
	fallbackProtocolVersion = "2024-11-05"
)

// MCP methods served by the dispatcher.
const (
	MethodInitialize    = "initialize"
	MethodPing          = "ping"
	MethodToolsList     = "tools/list"
	MethodToolsCall     = "tools/call"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
	MethodSetLevel      = "logging/setLevel"

	notificationPrefix = "notifications/"
)

var loggingLevels = []mcp.LoggingLevel{
	mcp.LoggingLevelDebug,
	mcp.LoggingLevelInfo,
	mcp.LoggingLevelNotice,
	mcp.LoggingLevelWarning,
	mcp.LoggingLevelError,
	mcp.LoggingLevelCritical,
	mcp.LoggingLevelAlert,
	mcp.LoggingLevelEmergency,
}

// LevelSetter receives the log level a client selects with logging/setLevel.
// SSE sessions implement it.
type LevelSetter interface {
	SetLogLevel(level mcp.LoggingLevel)
}

// Call describes who sent a message and over which channel.
type Call struct {
	Principal *auth.Principal
	// Session is nil for plain HTTP requests.
	Session LevelSetter
}

func (c Call) hasScope(scope string) bool {
	return c.Principal != nil && c.Principal.HasScope(scope)
}

func (c Call) siteID() uint {
	if c.Principal == nil {
		return 0
	}
	return c.Principal.SiteID
}

// envelope is the part of a JSON-RPC message needed for routing. The id is
// kept raw so that a missing id can be told apart from an explicit null.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (e *envelope) isNotification() bool {
	return len(e.ID) == 0 || strings.HasPrefix(e.Method, notificationPrefix)
}

// rpcError is a JSON-RPC error raised by a method handler.
type rpcError struct {
	code    int
	message string
}

func (e *rpcError) Error() string {
	return e.message
}

func invalidParams(format string, args ...any) *rpcError {
	return &rpcError{code: mcp.INVALID_PARAMS, message: fmt.Sprintf(format, args...)}
}

// Dispatcher is the JSON-RPC 2.0 front of the MCP server. It is stateless
// and safe for concurrent use; the HTTP and SSE transports share one.
type Dispatcher struct {
	pages   services.PageService
	version string
	tools   map[string]toolEntry
	catalog []mcp.Tool
	now     func() time.Time
}

func New(pages services.PageService, version string) *Dispatcher {
	d := &Dispatcher{
		pages:   pages,
		version: version,
		now:     func() time.Time { return time.Now().UTC() },
	}
	d.registerTools()
	return d
}

// Handle processes one JSON-RPC message and returns the response to send,
// or nil when the message was a notification.
func (d *Dispatcher) Handle(ctx context.Context, call Call, body []byte) (resp mcp.JSONRPCMessage) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.WithError(err).Debug("Rejecting unparsable JSON-RPC message")
		return mcp.NewJSONRPCError(mcp.NewRequestId(nil), mcp.PARSE_ERROR, "Parse error", nil)
	}

	var id mcp.RequestId
	if len(env.ID) > 0 {
		if err := json.Unmarshal(env.ID, &id); err != nil {
			return mcp.NewJSONRPCError(mcp.NewRequestId(nil), mcp.INVALID_REQUEST, "Invalid Request: id must be a string or a number", nil)
		}
	}
	if env.JSONRPC != mcp.JSONRPC_VERSION || env.Method == "" {
		return mcp.NewJSONRPCError(id, mcp.INVALID_REQUEST, "Invalid Request", nil)
	}

	entry := log.WithFields(logrus.Fields{"method": env.Method})
	if call.Principal != nil {
		entry = entry.WithField("mcp_token_id", call.Principal.McpTokenID)
	}

	if env.isNotification() {
		entry.Debug("Notification received")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Errorf("Panic while handling request\n%s", debug.Stack())
			resp = mcp.NewJSONRPCError(id, mcp.INTERNAL_ERROR, "Internal error", nil)
		}
	}()

	result, err := d.route(ctx, call, env.Method, env.Params)
	if err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) {
			entry.WithField("code", rerr.code).Debug(rerr.message)
			return mcp.NewJSONRPCError(id, rerr.code, rerr.message, nil)
		}
		entry.WithError(err).Error("Request failed")
		return mcp.NewJSONRPCError(id, mcp.INTERNAL_ERROR, "Internal error", nil)
	}
	return mcp.NewJSONRPCResultResponse(id, result)
}

func (d *Dispatcher) route(ctx context.Context, call Call, method string, params json.RawMessage) (any, error) {
	switch method {
	case MethodInitialize:
		return d.initialize(params)
	case MethodPing:
		return mcp.EmptyResult{}, nil
	case MethodToolsList:
		return mcp.NewListToolsResult(d.catalog, ""), nil
	case MethodToolsCall:
		return d.callTool(ctx, call, params)
	case MethodResourcesList:
		return d.listResources(ctx, call)
	case MethodResourcesRead:
		return d.readResource(ctx, call, params)
	case MethodSetLevel:
		return d.setLevel(call, params)
	default:
		return nil, &rpcError{code: mcp.METHOD_NOT_FOUND, message: "Method not found: " + method}
	}
}

// decodeParams unmarshals params into dst. Absent params leave dst untouched.
func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return invalidParams("Invalid params: %v", err)
	}
	return nil
}

func (d *Dispatcher) initialize(params json.RawMessage) (any, error) {
	var p mcp.InitializeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	version := fallbackProtocolVersion
	if slices.Contains(mcp.ValidProtocolVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}

	var caps mcp.ServerCapabilities
	caps.Tools = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	caps.Resources = &struct {
		Subscribe   bool `json:"subscribe,omitempty"`
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	caps.Logging = &struct{}{}

	log.WithFields(logrus.Fields{
		"client":           p.ClientInfo.Name,
		"protocol_version": version,
	}).Info("MCP session initialized")

	return mcp.NewInitializeResult(version, caps, mcp.Implementation{
		Name:    ServerName,
		Version: d.version,
	}, "Manage the pages of your site. Pages form a tree addressed by path; use list_pages first to see it."), nil
}

func (d *Dispatcher) setLevel(call Call, params json.RawMessage) (any, error) {
	var p mcp.SetLevelParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if !slices.Contains(loggingLevels, p.Level) {
		return nil, invalidParams("Invalid log level: %q", p.Level)
	}
	if call.Session != nil {
		call.Session.SetLogLevel(p.Level)
	}
	return mcp.EmptyResult{}, nil
}
