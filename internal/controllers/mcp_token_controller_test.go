package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMcpTokenAdminRequiresSession(t *testing.T) {
	env := newSyncEnv(t)

	w := env.do(http.MethodGet, "/.admin/mcp-tokens", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrUnauthorized, decodeJSON(t, w)["code"])
}

func TestCreateMcpToken(t *testing.T) {
	env := newSyncEnv(t)
	cookie := env.sessionCookie(t, env.user)

	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing site",
			body:       `{"name":"agent"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.ErrBadRequest,
		},
		{
			name:       "blank name",
			body:       fmt.Sprintf(`{"name":"   ","site_id":%d}`, env.site.ID),
			wantStatus: http.StatusBadRequest,
			wantCode:   models.ErrValidationFailed,
		},
		{
			name:       "unknown site",
			body:       `{"name":"agent","site_id":999}`,
			wantStatus: http.StatusNotFound,
			wantCode:   models.ErrNotFound,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/.admin/mcp-tokens", tt.body,
				"Cookie", cookie, "Content-Type", "application/json")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeJSON(t, w)["code"])
		})
	}

	t.Run("returns the secret once", func(t *testing.T) {
		body := fmt.Sprintf(`{"name":"Claude desktop","site_id":%d}`, env.site.ID)
		w := env.do(http.MethodPost, "/.admin/mcp-tokens", body,
			"Cookie", cookie, "Content-Type", "application/json")
		require.Equal(t, http.StatusCreated, w.Code)

		var resp McpTokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Claude desktop", resp.Name)
		assert.Equal(t, env.site.ID, resp.SiteID)
		require.NotEmpty(t, resp.Token)
		assert.Equal(t, "https://example.com/.mcp/"+resp.Token, resp.LegacyURL)

		stored, err := env.store.McpTokens.FindByHash(context.Background(), tokens.HashToken(resp.Token))
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, resp.ID, stored.ID)
		assert.Equal(t, env.user.ID, stored.UserID)

		list := env.do(http.MethodGet, "/.admin/mcp-tokens", "", "Cookie", cookie)
		require.Equal(t, http.StatusOK, list.Code)
		assert.NotContains(t, list.Body.String(), resp.Token)
	})
}

func TestListMcpTokens(t *testing.T) {
	env := newSyncEnv(t)

	w := env.do(http.MethodGet, "/.admin/mcp-tokens", "", "Cookie", env.sessionCookie(t, env.user))
	require.Equal(t, http.StatusOK, w.Code)

	var list []McpTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, env.mcpToken.ID, list[0].ID)
	assert.Empty(t, list[0].Token)

	// Other users do not see it.
	w = env.do(http.MethodGet, "/.admin/mcp-tokens", "", "Cookie", env.sessionCookie(t, env.admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRevokeMcpToken(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()

	t.Run("other users get not found", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/.admin/mcp-tokens/"+env.mcpToken.ID, "", "Cookie", env.sessionCookie(t, env.admin))

		assert.Equal(t, http.StatusNotFound, w.Code)
		mt, err := env.store.McpTokens.FindByID(ctx, env.mcpToken.ID)
		require.NoError(t, err)
		assert.Nil(t, mt.RevokedAt)
	})

	t.Run("unknown token", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/.admin/mcp-tokens/missing", "", "Cookie", env.sessionCookie(t, env.user))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("owner revokes and the token stops working", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/.admin/mcp-tokens/"+env.mcpToken.ID, "", "Cookie", env.sessionCookie(t, env.user))
		require.Equal(t, http.StatusNoContent, w.Code)

		mt, err := env.store.McpTokens.FindByID(ctx, env.mcpToken.ID)
		require.NoError(t, err)
		require.NotNil(t, mt.RevokedAt)
		assert.WithinDuration(t, time.Now(), *mt.RevokedAt, time.Minute)

		w = env.do(http.MethodPost, "/.mcp", rpcBody(1, "ping", nil), bearer(env.secret)...)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
