package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/config"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/database"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/dispatcher"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/middleware"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/sse"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testSessionKey = []byte("controller-test-key")

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type testEnv struct {
	db            *gorm.DB
	store         *services.CredentialStore
	authenticator *auth.Authenticator
	sessions      *auth.SessionSigner
	oauth         *auth.OAuthService
	sseSessions   *sse.Manager
	user          *models.User
	admin         *models.User
	site          *models.Site
	mcpToken      *models.McpToken
	secret        string
	router        *gin.Engine
}

func newTestEnv(t *testing.T, responseMode string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := setupTestDB(t)

	users := services.NewUserService(db)
	user := &models.User{Email: "owner@example.com", Name: "Owner", Role: models.RoleUser}
	require.NoError(t, user.SetPassword("correct horse"))
	require.NoError(t, users.CreateUser(ctx, user))
	admin := &models.User{Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin}
	require.NoError(t, admin.SetPassword("battery staple"))
	require.NoError(t, users.CreateUser(ctx, admin))

	sites := services.NewSiteService(db)
	site := &models.Site{Domain: "example.com", Title: "Home"}
	require.NoError(t, sites.CreateSite(ctx, site))

	store := services.NewCredentialStore(db)
	mt, secret, err := store.McpTokens.Create(ctx, user.ID, site.ID, "agent")
	require.NoError(t, err)

	authenticator := auth.NewDefaultAuthenticator(store)
	t.Cleanup(authenticator.Wait)

	sessions := auth.NewSessionSigner(testSessionKey, time.Hour)
	issuer := auth.NewIssuer(store, auth.IssuerConfig{
		CodeTTL:         10 * time.Minute,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	clients := services.NewClientService(db)
	oauth := auth.NewOAuthService(issuer, clients, store.McpTokens, sessions)

	sseSessions := sse.NewManager(time.Minute, 4)
	t.Cleanup(sseSessions.Stop)

	d := dispatcher.New(services.NewPageService(db), "test")
	discovery := NewDiscoveryController(services.NewDiscoveryService())
	mcpController := NewMCPController(d, auth.NewLegacyMcpTokenResolver(store.McpTokens), authenticator, discovery.ResourceMetadataURL)
	sseController := NewSSEController(d, sseSessions, authenticator, store.McpTokens, 50*time.Millisecond, responseMode)
	authController := NewAuthController(users, sessions, false)
	clientController := NewClientController(clients, oauth)
	tokenController := NewMcpTokenController(store.McpTokens, sites, sseSessions, discovery.BaseURL)

	r := gin.New()
	r.SetHTMLTemplate(auth.Templates())

	wellKnown := r.Group("/.well-known", middleware.DiscoveryCORS())
	wellKnown.GET("", discovery.Index)
	wellKnown.GET("/oauth-authorization-server", discovery.AuthorizationServer)
	wellKnown.GET("/openid-configuration", discovery.AuthorizationServer)
	wellKnown.GET("/oauth-protected-resource", discovery.ProtectedResource)
	wellKnown.OPTIONS("/*path", func(c *gin.Context) {})

	bearer := middleware.BearerAuth(authenticator, discovery.ResourceMetadataURL)
	r.HEAD("/.mcp", mcpController.Probe)
	r.POST("/.mcp", bearer, mcpController.Handle)
	r.POST("/.mcp/:token_id", mcpController.HandleLegacy)
	r.GET("/.sse", bearer, sseController.Stream)
	r.POST(SSEMessagesPath, sseController.Messages)

	r.GET(auth.LoginPath, authController.LoginPage)
	r.POST(auth.LoginPath, authController.Login)
	r.POST("/.logout", authController.Logout)

	adminGroup := r.Group("/.admin", middleware.SessionAuth(testSessionKey))
	adminGroup.GET("/mcp-tokens", tokenController.ListTokens)
	adminGroup.POST("/mcp-tokens", tokenController.CreateToken)
	adminGroup.DELETE("/mcp-tokens/:id", tokenController.RevokeToken)
	clientsGroup := adminGroup.Group("/clients", middleware.RequireRole(models.RoleAdmin))
	clientsGroup.GET("", clientController.ListClients)
	clientsGroup.POST("", clientController.CreateClient)
	clientsGroup.DELETE("/:id", clientController.DeleteClient)

	return &testEnv{
		db:            db,
		store:         store,
		authenticator: authenticator,
		sessions:      sessions,
		oauth:         oauth,
		sseSessions:   sseSessions,
		user:          user,
		admin:         admin,
		site:          site,
		mcpToken:      mt,
		secret:        secret,
		router:        r,
	}
}

func newSyncEnv(t *testing.T) *testEnv {
	return newTestEnv(t, config.SSEResponseSync)
}

// do runs one request against the router. Headers come in name, value pairs.
func (e *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// sessionCookie signs a session for user and returns the Cookie header value.
func (e *testEnv) sessionCookie(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.sessions.Issue(user)
	require.NoError(t, err)
	return (&http.Cookie{Name: auth.SessionCookieName, Value: token}).String()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func rpcBody(id int, method string, params any) string {
	req := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	b, _ := json.Marshal(req)
	return string(b)
}
