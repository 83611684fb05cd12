package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func signClaims(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func sessionClaims(mutate func(jwt.MapClaims)) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"uid":  "42",
		"role": models.RoleUser,
		"aud":  auth.SessionAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	return claims
}

func sessionRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		userID, _ := c.Get(ContextUserID)
		role, _ := c.Get(ContextUserRole)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	r.GET("/protected", handlers...)
	return r
}

func requestWithCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	}
	return req
}

func TestSessionAuth(t *testing.T) {
	testCases := []struct {
		name   string
		cookie func(t *testing.T) string
		status int
	}{
		{
			name:   "valid session",
			cookie: func(t *testing.T) string { return signClaims(t, sessionClaims(nil), jwt.SigningMethodHS256, testSecret) },
			status: http.StatusOK,
		},
		{
			name: "numeric uid",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(func(c jwt.MapClaims) { c["uid"] = 42 }), jwt.SigningMethodHS256, testSecret)
			},
			status: http.StatusOK,
		},
		{
			name:   "no cookie",
			cookie: func(t *testing.T) string { return "" },
			status: http.StatusUnauthorized,
		},
		{
			name:   "garbage",
			cookie: func(t *testing.T) string { return "not-a-jwt" },
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong secret",
			cookie: func(t *testing.T) string { return signClaims(t, sessionClaims(nil), jwt.SigningMethodHS256, []byte("other")) },
			status: http.StatusUnauthorized,
		},
		{
			name: "expired",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }), jwt.SigningMethodHS256, testSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "missing exp",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(func(c jwt.MapClaims) { delete(c, "exp") }), jwt.SigningMethodHS256, testSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "csrf audience is not a session",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(func(c jwt.MapClaims) { c["aud"] = "csrf" }), jwt.SigningMethodHS256, testSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "unknown role",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(func(c jwt.MapClaims) { c["role"] = "root" }), jwt.SigningMethodHS256, testSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "missing uid",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(func(c jwt.MapClaims) { delete(c, "uid") }), jwt.SigningMethodHS256, testSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "unsigned",
			cookie: func(t *testing.T) string {
				return signClaims(t, sessionClaims(nil), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)
			},
			status: http.StatusUnauthorized,
		},
	}

	router := sessionRouter(SessionAuth(testSecret))

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, requestWithCookie(tt.cookie(t)))

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42,"role":"user"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), models.ErrUnauthorized)
			}
		})
	}
}

func TestSessionSignerCookieIsAccepted(t *testing.T) {
	signer := auth.NewSessionSigner(testSecret, time.Hour)
	cookie, err := signer.Issue(&models.User{ID: 7, Role: models.RoleAdmin})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	sessionRouter(SessionAuth(testSecret)).ServeHTTP(w, requestWithCookie(cookie))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"admin"}`, w.Body.String())
}

func TestOptionalSession(t *testing.T) {
	router := sessionRouter(OptionalSession(testSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestWithCookie(""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":null,"role":null}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestWithCookie("broken"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":null,"role":null}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestWithCookie(signClaims(t, sessionClaims(nil), jwt.SigningMethodHS256, testSecret)))
	assert.JSONEq(t, `{"user_id":42,"role":"user"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	testCases := []struct {
		name   string
		setup  gin.HandlerFunc
		status int
	}{
		{
			name:   "no user",
			setup:  func(c *gin.Context) { c.Next() },
			status: http.StatusUnauthorized,
		},
		{
			name: "no role",
			setup: func(c *gin.Context) {
				c.Set(ContextUserID, uint(1))
				c.Next()
			},
			status: http.StatusForbidden,
		},
		{
			name: "wrong role",
			setup: func(c *gin.Context) {
				c.Set(ContextUserID, uint(1))
				c.Set(ContextUserRole, models.RoleUser)
				c.Next()
			},
			status: http.StatusForbidden,
		},
		{
			name: "admin",
			setup: func(c *gin.Context) {
				c.Set(ContextUserID, uint(1))
				c.Set(ContextUserRole, models.RoleAdmin)
				c.Next()
			},
			status: http.StatusOK,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			router := sessionRouter(tt.setup, RequireRole(models.RoleAdmin))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

type stubAuthenticator struct {
	principal *auth.Principal
	err       error
	raw       string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, raw string) (*auth.Principal, error) {
	s.raw = raw
	return s.principal, s.err
}

func bearerRouter(a BearerAuthenticator, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{BearerAuth(a, func(c *gin.Context) string {
		return "http://" + c.Request.Host + "/.well-known/oauth-protected-resource"
	})}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mcp_token_id": p.McpTokenID})
	})
	r.POST("/.mcp", handlers...)
	return r
}

func TestBearerToken(t *testing.T) {
	testCases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer abc", token: "abc", ok: true},
		{header: "Bearer   abc  ", token: "abc", ok: true},
		{header: "Bearer", ok: false},
		{header: "Bearer ", ok: false},
		{header: "Basic dXNlcjpwYXNz", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range testCases {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestBearerAuth(t *testing.T) {
	principal := &auth.Principal{UserID: 3, SiteID: 1, McpTokenID: "mt-1", Scopes: []string{"mcp:read"}}

	t.Run("missing header advertises resource metadata", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8080/.mcp", nil)
		bearerRouter(&stubAuthenticator{principal: principal}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Bearer resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`, w.Header().Get("WWW-Authenticate"))
		assert.Contains(t, w.Body.String(), `"error":"invalid_token"`)
	})

	t.Run("basic credentials are not accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/.mcp", nil)
		req.SetBasicAuth("user", "pass")
		bearerRouter(&stubAuthenticator{principal: principal}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "resource_metadata=")
		assert.Contains(t, w.Body.String(), `"error":"invalid_token"`)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/.mcp", nil)
		req.Header.Set("Authorization", "Bearer expired")
		bearerRouter(&stubAuthenticator{err: auth.ErrInvalidToken}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Bearer error="invalid_token", error_description="`+invalidTokenDescription+`"`, w.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{"error":"invalid_token","error_description":"`+invalidTokenDescription+`"}`, w.Body.String())
	})

	t.Run("storage failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/.mcp", nil)
		req.Header.Set("Authorization", "Bearer tok")
		bearerRouter(&stubAuthenticator{err: errors.New("database is locked")}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), models.ErrServerError)
		assert.NotContains(t, w.Body.String(), "locked")
	})

	t.Run("valid token", func(t *testing.T) {
		stub := &stubAuthenticator{principal: principal}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/.mcp", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		bearerRouter(stub).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "good-token", stub.raw)
		assert.JSONEq(t, `{"mcp_token_id":"mt-1"}`, w.Body.String())
	})
}

func TestRequireScope(t *testing.T) {
	principal := &auth.Principal{UserID: 3, McpTokenID: "mt-1", Scopes: []string{"mcp:read"}}

	send := func(scope string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/.mcp", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		bearerRouter(&stubAuthenticator{principal: principal}, RequireScope(scope)).ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("mcp:read").Code)

	w := send("mcp:write")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, `Bearer error="insufficient_scope", scope="mcp:write"`, w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), models.ErrInsufficientScope)

	t.Run("without bearer middleware", func(t *testing.T) {
		r := gin.New()
		r.GET("/x", RequireScope("mcp:read"), func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDiscoveryCORS(t *testing.T) {
	r := gin.New()
	r.Use(DiscoveryCORS())
	handler := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"issuer": "x"}) }
	r.GET("/.well-known/oauth-authorization-server", handler)
	r.OPTIONS("/.well-known/oauth-authorization-server", handler)

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/.well-known/oauth-authorization-server", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
