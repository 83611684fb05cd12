package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/database"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RFC 7636 appendix B.
const (
	testVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	testRedirectURI = "http://127.0.0.1:33418/callback"
)

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
	db        *gorm.DB
	store     *services.CredentialStore
	issuer    *Issuer
	sessions  *SessionSigner
	oauth     *OAuthService
	user      *models.User
	site      *models.Site
	mcpToken  *models.McpToken
	mcpSecret string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, IssuerConfig{
		CodeTTL:         10 * time.Minute,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func newTestEnvWithConfig(t *testing.T, cfg IssuerConfig) *testEnv {
	t.Helper()
	ctx := context.Background()
	db := setupTestDB(t)

	user := &models.User{Email: "owner@example.com", Name: "Owner"}
	require.NoError(t, user.SetPassword("correct horse"))
	require.NoError(t, services.NewUserService(db).CreateUser(ctx, user))

	site := &models.Site{Domain: "example.com", Title: "Example"}
	require.NoError(t, services.NewSiteService(db).CreateSite(ctx, site))

	store := services.NewCredentialStore(db)
	mt, secret, err := store.McpTokens.Create(ctx, user.ID, site.ID, "agent")
	require.NoError(t, err)

	issuer := NewIssuer(store, cfg)
	sessions := NewSessionSigner([]byte("test-session-key"), time.Hour)
	return &testEnv{
		db:        db,
		store:     store,
		issuer:    issuer,
		sessions:  sessions,
		oauth:     NewOAuthService(issuer, services.NewClientService(db), store.McpTokens, sessions),
		user:      user,
		site:      site,
		mcpToken:  mt,
		mcpSecret: secret,
	}
}

// registerClient creates a client allowed to use both grants.
func (e *testEnv) registerClient(t *testing.T, authMethod string) *RegistrationResponse {
	t.Helper()
	resp, oerr := e.oauth.RegisterClient(context.Background(), RegistrationRequest{
		ClientName:              "Test Agent",
		RedirectURIs:            []string{testRedirectURI},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethod: authMethod,
	}, nil)
	require.Nil(t, oerr)
	return resp
}

func (e *testEnv) issueCode(t *testing.T, clientID string) string {
	t.Helper()
	code, err := e.issuer.IssueCode(context.Background(), IssueCodeRequest{
		ClientID:            clientID,
		UserID:              e.user.ID,
		McpTokenID:          e.mcpToken.ID,
		RedirectURI:         testRedirectURI,
		Scope:               "mcp:read mcp:write",
		CodeChallenge:       testChallenge,
		CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	return code.Code
}

// router mounts the OAuth endpoints. A non-zero userID plays the part of the
// session middleware.
func (e *testEnv) router(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
		}
		c.Next()
	})
	r.GET("/.oauth/authorize", e.oauth.HandleAuthorize)
	r.POST("/.oauth/authorize", e.oauth.HandleAuthorizeDecision)
	r.POST("/.oauth/token", e.oauth.HandleToken)
	r.POST("/.oauth/revoke", e.oauth.HandleRevoke)
	r.POST("/.oauth/register", e.oauth.HandleRegister)
	return r
}

func postForm(r http.Handler, path string, form url.Values, basicUser, basicPass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
