package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authorizeQuery(clientID string) url.Values {
	return url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {testRedirectURI},
		"scope":                 {"mcp:read mcp:write"},
		"state":                 {"xyz"},
		"code_challenge":        {testChallenge},
		"code_challenge_method": {"S256"},
	}
}

func getAuthorize(r http.Handler, q url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/.oauth/authorize?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeOAuthError(t *testing.T, w *httptest.ResponseRecorder) models.OAuth2Error {
	t.Helper()
	var body models.OAuth2Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleAuthorize(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "none")

	t.Run("redirects to login without a session", func(t *testing.T) {
		w := getAuthorize(env.router(0), authorizeQuery(client.ClientID))

		assert.Equal(t, http.StatusFound, w.Code)
		location := w.Header().Get("Location")
		assert.True(t, strings.HasPrefix(location, "/.login?return_to="))
		returnTo, err := url.Parse(location)
		require.NoError(t, err)
		assert.Contains(t, returnTo.Query().Get("return_to"), "/.oauth/authorize?")
	})

	t.Run("renders consent", func(t *testing.T) {
		w := getAuthorize(env.router(env.user.ID), authorizeQuery(client.ClientID))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Test Agent")
		assert.Contains(t, body, env.mcpToken.ID)
		assert.Contains(t, body, `name="csrf_token"`)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	})

	errorCases := []struct {
		name       string
		mutate     func(q url.Values)
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown client is answered directly",
			mutate:     func(q url.Values) { q.Set("client_id", "unknown") },
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_client",
		},
		{
			name:       "unregistered redirect uri is answered directly",
			mutate:     func(q url.Values) { q.Set("redirect_uri", "https://evil.example.com/cb") },
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_request",
		},
		{
			name:       "wrong response type",
			mutate:     func(q url.Values) { q.Set("response_type", "token") },
			wantStatus: http.StatusFound,
			wantError:  "unsupported_response_type",
		},
		{
			name:       "plain pkce",
			mutate:     func(q url.Values) { q.Set("code_challenge_method", "plain") },
			wantStatus: http.StatusFound,
			wantError:  "invalid_request",
		},
		{
			name: "public client without pkce",
			mutate: func(q url.Values) {
				q.Del("code_challenge")
				q.Del("code_challenge_method")
			},
			wantStatus: http.StatusFound,
			wantError:  "invalid_request",
		},
		{
			name:       "scope outside the client",
			mutate:     func(q url.Values) { q.Set("scope", "admin") },
			wantStatus: http.StatusFound,
			wantError:  "invalid_scope",
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			q := authorizeQuery(client.ClientID)
			tt.mutate(q)
			w := getAuthorize(env.router(env.user.ID), q)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusFound {
				loc, err := url.Parse(w.Header().Get("Location"))
				require.NoError(t, err)
				assert.Equal(t, "127.0.0.1:33418", loc.Host)
				assert.Equal(t, tt.wantError, loc.Query().Get("error"))
				assert.Equal(t, "xyz", loc.Query().Get("state"))
				return
			}
			assert.Empty(t, w.Header().Get("Location"))
			assert.Equal(t, tt.wantError, decodeOAuthError(t, w).Error)
		})
	}
}

func TestHandleAuthorizeDecision(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "none")
	router := env.router(env.user.ID)

	decision := func(action, mcpTokenID, csrf string) url.Values {
		form := authorizeQuery(client.ClientID)
		form.Set("action", action)
		form.Set("mcp_token_id", mcpTokenID)
		form.Set("csrf_token", csrf)
		return form
	}
	csrf, err := env.sessions.IssueCSRF(env.user.ID, client.ClientID)
	require.NoError(t, err)

	t.Run("approve", func(t *testing.T) {
		w := postForm(router, "/.oauth/authorize", decision("approve", env.mcpToken.ID, csrf), "", "")

		require.Equal(t, http.StatusFound, w.Code)
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/callback", loc.Path)
		assert.Equal(t, "xyz", loc.Query().Get("state"))
		code := loc.Query().Get("code")
		require.Len(t, code, tokens.CodeLength)

		stored, err := env.store.Codes.FindByCode(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, env.mcpToken.ID, stored.McpTokenID)
		assert.Equal(t, testChallenge, stored.CodeChallenge)
	})

	t.Run("deny", func(t *testing.T) {
		w := postForm(router, "/.oauth/authorize", decision("deny", env.mcpToken.ID, csrf), "", "")

		require.Equal(t, http.StatusFound, w.Code)
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "access_denied", loc.Query().Get("error"))
		assert.Empty(t, loc.Query().Get("code"))
	})

	t.Run("bad csrf", func(t *testing.T) {
		w := postForm(router, "/.oauth/authorize", decision("approve", env.mcpToken.ID, "forged"), "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("csrf bound to another client", func(t *testing.T) {
		other, err := env.sessions.IssueCSRF(env.user.ID, "another-client")
		require.NoError(t, err)
		w := postForm(router, "/.oauth/authorize", decision("approve", env.mcpToken.ID, other), "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("token of another user", func(t *testing.T) {
		foreign, _, err := env.store.McpTokens.Create(context.Background(), env.user.ID+1, env.site.ID, "foreign")
		require.NoError(t, err)
		w := postForm(router, "/.oauth/authorize", decision("approve", foreign.ID, csrf), "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no session", func(t *testing.T) {
		w := postForm(env.router(0), "/.oauth/authorize", decision("approve", env.mcpToken.ID, csrf), "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthorizeWithoutRedirectURI(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "client_secret_basic")
	router := env.router(env.user.ID)

	q := authorizeQuery(client.ClientID)
	q.Del("redirect_uri")

	t.Run("consent keeps the redirect uri unset", func(t *testing.T) {
		w := getAuthorize(router, q)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="redirect_uri" value=""`)
	})

	csrf, err := env.sessions.IssueCSRF(env.user.ID, client.ClientID)
	require.NoError(t, err)
	form := url.Values{}
	for k, v := range q {
		form[k] = v
	}
	form.Set("action", "approve")
	form.Set("mcp_token_id", env.mcpToken.ID)
	form.Set("csrf_token", csrf)

	w := postForm(router, "/.oauth/authorize", form, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:33418", loc.Host)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)

	stored, err := env.store.Codes.FindByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Empty(t, stored.RedirectURI)

	t.Run("token request without redirect uri succeeds", func(t *testing.T) {
		w := postForm(env.router(0), "/.oauth/token", url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"code_verifier": {testVerifier},
		}, client.ClientID, client.ClientSecret)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var pair TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
		assert.NotEmpty(t, pair.AccessToken)
	})
}

func TestHandleToken(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "client_secret_basic")
	router := env.router(0)

	codeForm := func(code string) url.Values {
		return url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"redirect_uri":  {testRedirectURI},
			"code_verifier": {testVerifier},
		}
	}

	var pair TokenPair
	t.Run("authorization code with basic auth", func(t *testing.T) {
		w := postForm(router, "/.oauth/token", codeForm(env.issueCode(t, client.ClientID)), client.ClientID, client.ClientSecret)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
		assert.Equal(t, "Bearer", pair.TokenType)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("refresh with form credentials", func(t *testing.T) {
		form := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {pair.RefreshToken},
			"client_id":     {client.ClientID},
			"client_secret": {client.ClientSecret},
		}
		w := postForm(router, "/.oauth/token", form, "", "")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var rotated TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rotated))
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		w = postForm(router, "/.oauth/token", form, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_grant", decodeOAuthError(t, w).Error)
	})

	t.Run("wrong secret over basic", func(t *testing.T) {
		w := postForm(router, "/.oauth/token", codeForm("whatever"), client.ClientID, "wrong")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Basic realm="oauth"`, w.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "invalid_client", decodeOAuthError(t, w).Error)
	})

	t.Run("wrong secret in form", func(t *testing.T) {
		form := codeForm("whatever")
		form.Set("client_id", client.ClientID)
		form.Set("client_secret", "wrong")
		w := postForm(router, "/.oauth/token", form, "", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("no client credentials", func(t *testing.T) {
		w := postForm(router, "/.oauth/token", codeForm("whatever"), "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad code", func(t *testing.T) {
		w := postForm(router, "/.oauth/token", codeForm("whatever"), client.ClientID, client.ClientSecret)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_grant", decodeOAuthError(t, w).Error)
	})

	grantCases := []struct {
		grantType string
		wantError string
	}{
		{"", "invalid_request"},
		{"client_credentials", "unsupported_grant_type"},
		{"password", "unsupported_grant_type"},
	}
	for _, tt := range grantCases {
		t.Run("grant type "+tt.grantType, func(t *testing.T) {
			w := postForm(router, "/.oauth/token", url.Values{"grant_type": {tt.grantType}}, client.ClientID, client.ClientSecret)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decodeOAuthError(t, w).Error)
		})
	}

	t.Run("client without the refresh grant", func(t *testing.T) {
		resp, oerr := env.oauth.RegisterClient(context.Background(), RegistrationRequest{
			ClientName:   "Code only",
			RedirectURIs: []string{testRedirectURI},
		}, nil)
		require.Nil(t, oerr)

		form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"x"}}
		w := postForm(router, "/.oauth/token", form, resp.ClientID, resp.ClientSecret)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "unauthorized_client", decodeOAuthError(t, w).Error)
	})
}

func TestHandleRevoke(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "client_secret_basic")
	router := env.router(0)

	pair, err := env.issuer.RedeemCode(context.Background(), RedeemCodeRequest{
		Code:         env.issueCode(t, client.ClientID),
		ClientID:     client.ClientID,
		RedirectURI:  testRedirectURI,
		CodeVerifier: testVerifier,
	})
	require.NoError(t, err)

	w := postForm(router, "/.oauth/revoke", url.Values{"token": {pair.AccessToken}}, client.ClientID, client.ClientSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	at, err := env.store.AccessTokens.FindByHash(context.Background(), tokens.HashToken(pair.AccessToken))
	require.NoError(t, err)
	assert.Nil(t, at)

	w = postForm(router, "/.oauth/revoke", url.Values{"token": {"unknown"}}, client.ClientID, client.ClientSecret)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postForm(router, "/.oauth/revoke", url.Values{}, client.ClientID, client.ClientSecret)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postForm(router, "/.oauth/revoke", url.Values{"token": {pair.RefreshToken}}, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleRegister(t *testing.T) {
	env := newTestEnv(t)
	router := env.router(0)

	register := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/.oauth/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("confidential client", func(t *testing.T) {
		w := register(`{"client_name":"Claude","redirect_uris":["https://claude.ai/api/mcp/auth_callback"],"grant_types":["authorization_code","refresh_token"]}`)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp RegistrationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ClientID)
		assert.Len(t, resp.ClientSecret, tokens.SecretLength)
		assert.Equal(t, int64(0), resp.ClientSecretExpiresAt)
		assert.NotZero(t, resp.ClientIDIssuedAt)
		assert.Equal(t, "client_secret_basic", resp.TokenEndpointAuthMethod)
		assert.Equal(t, "mcp:read mcp:write", resp.Scope)
		assert.Equal(t, []string{"code"}, resp.ResponseTypes)

		stored, err := env.oauth.clients.GetClientByID(context.Background(), resp.ClientID)
		require.NoError(t, err)
		require.NotNil(t, stored.SecretHash)
		assert.NotEqual(t, resp.ClientSecret, *stored.SecretHash)
	})

	t.Run("public client", func(t *testing.T) {
		w := register(`{"client_name":"CLI","redirect_uris":["http://127.0.0.1/cb"],"token_endpoint_auth_method":"none","scope":"mcp:read"}`)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp RegistrationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.ClientSecret)
		assert.Equal(t, []string{"authorization_code"}, resp.GrantTypes)
		assert.Equal(t, "mcp:read", resp.Scope)
	})

	errorCases := []struct {
		name      string
		body      string
		wantError string
	}{
		{"malformed json", `{"client_name":`, "invalid_client_metadata"},
		{"missing name", `{"redirect_uris":["https://a.example.com/cb"]}`, "invalid_client_metadata"},
		{"no redirect uris", `{"client_name":"x"}`, "invalid_redirect_uri"},
		{"http on a public host", `{"client_name":"x","redirect_uris":["http://a.example.com/cb"]}`, "invalid_redirect_uri"},
		{"fragment", `{"client_name":"x","redirect_uris":["https://a.example.com/cb#f"]}`, "invalid_redirect_uri"},
		{"client credentials grant", `{"client_name":"x","redirect_uris":["https://a.example.com/cb"],"grant_types":["client_credentials"]}`, "invalid_client_metadata"},
		{"token response type", `{"client_name":"x","redirect_uris":["https://a.example.com/cb"],"response_types":["token"]}`, "invalid_client_metadata"},
		{"unknown scope", `{"client_name":"x","redirect_uris":["https://a.example.com/cb"],"scope":"admin"}`, "invalid_client_metadata"},
		{"unknown auth method", `{"client_name":"x","redirect_uris":["https://a.example.com/cb"],"token_endpoint_auth_method":"private_key_jwt"}`, "invalid_client_metadata"},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			w := register(tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decodeOAuthError(t, w).Error)
		})
	}
}
