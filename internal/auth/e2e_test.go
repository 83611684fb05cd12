package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
)

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// TestAuthorizationCodeFlowWithOAuth2Client drives the whole flow with the
// golang.org/x/oauth2 client: authorize with PKCE, approve, exchange, refresh.
func TestAuthorizationCodeFlowWithOAuth2Client(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "client_secret_basic")
	srv := httptest.NewServer(env.router(env.user.ID))
	defer srv.Close()

	conf := &xoauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint: xoauth2.Endpoint{
			AuthURL:   srv.URL + "/.oauth/authorize",
			TokenURL:  srv.URL + "/.oauth/token",
			AuthStyle: xoauth2.AuthStyleInHeader,
		},
		RedirectURL: testRedirectURI,
		Scopes:      []string{"mcp:read", "mcp:write"},
	}
	verifier := xoauth2.GenerateVerifier()
	httpClient := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	// consent page
	resp, err := httpClient.Get(conf.AuthCodeURL("state-123", xoauth2.S256ChallengeOption(verifier)))
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := csrfInput.FindSubmatch(page)
	require.Len(t, m, 2)

	// approve
	form := url.Values{
		"response_type":         {"code"},
		"client_id":             {client.ClientID},
		"redirect_uri":          {testRedirectURI},
		"scope":                 {"mcp:read mcp:write"},
		"state":                 {"state-123"},
		"code_challenge":        {xoauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"S256"},
		"csrf_token":            {string(m[1])},
		"mcp_token_id":          {env.mcpToken.ID},
		"action":                {"approve"},
	}
	resp, err = httpClient.Post(conf.Endpoint.AuthURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "state-123", loc.Query().Get("state"))
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)

	// exchange
	ctx := context.Background()
	tok, err := conf.Exchange(ctx, code, xoauth2.VerifierOption(verifier))
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.Equal(t, "mcp:read mcp:write", tok.Extra("scope"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)

	authenticator := NewDefaultAuthenticator(env.store)
	p, err := authenticator.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, env.site.ID, p.SiteID)
	assert.Equal(t, client.ClientID, p.ClientID)
	authenticator.Wait()

	// a replayed code is refused
	_, err = conf.Exchange(ctx, code, xoauth2.VerifierOption(verifier))
	var retrieveErr *xoauth2.RetrieveError
	require.ErrorAs(t, err, &retrieveErr)
	assert.Equal(t, "invalid_grant", retrieveErr.ErrorCode)

	// refresh through a token source holding an expired access token
	expired := &xoauth2.Token{RefreshToken: tok.RefreshToken, Expiry: time.Now().Add(-time.Minute)}
	refreshed, err := conf.TokenSource(ctx, expired).Token()
	require.NoError(t, err)
	assert.NotEqual(t, tok.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, tok.RefreshToken, refreshed.RefreshToken)
}
