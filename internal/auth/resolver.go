package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/tokens"
	"github.com/sirupsen/logrus"
)

// Authentication methods recorded on a Principal.
const (
	MethodOAuth    = "oauth2"
	MethodMcpToken = "mcp_token"
)

const touchTimeout = 5 * time.Second

// Principal is the authenticated caller of an MCP request.
type Principal struct {
	UserID     uint
	SiteID     uint
	McpTokenID string
	ClientID   string
	Scopes     []string
	Method     string
}

func (p *Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// CredentialResolver turns a raw bearer value into a Principal. It returns
// (nil, nil) when the value is not a credential it knows, so the next
// resolver can try, and ErrInvalidToken when it knows the credential but it
// can no longer be used.
type CredentialResolver interface {
	Resolve(ctx context.Context, raw string) (*Principal, error)
}

// AccessTokenResolver accepts OAuth2 access tokens.
type AccessTokenResolver struct {
	store *services.CredentialStore
	now   func() time.Time
}

func NewAccessTokenResolver(store *services.CredentialStore) *AccessTokenResolver {
	return &AccessTokenResolver{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *AccessTokenResolver) Resolve(ctx context.Context, raw string) (*Principal, error) {
	at, err := r.store.AccessTokens.FindByHash(ctx, tokens.HashToken(raw))
	if err != nil {
		return nil, err
	}
	if at == nil {
		return nil, nil
	}
	if !at.IsValid(r.now()) {
		return nil, ErrInvalidToken
	}

	mt, err := r.store.McpTokens.FindByID(ctx, at.McpTokenID)
	if err != nil {
		return nil, err
	}
	if mt == nil || !mt.IsValid() {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID:     at.UserID,
		SiteID:     mt.SiteID,
		McpTokenID: mt.ID,
		ClientID:   at.ClientID,
		Scopes:     ParseScope(at.Scope),
		Method:     MethodOAuth,
	}, nil
}

// LegacyMcpTokenResolver accepts the raw McpToken secret as a bearer value.
// Such callers get every scope.
type LegacyMcpTokenResolver struct {
	mcpTokens services.McpTokenService
}

func NewLegacyMcpTokenResolver(mcpTokens services.McpTokenService) *LegacyMcpTokenResolver {
	return &LegacyMcpTokenResolver{mcpTokens: mcpTokens}
}

func (r *LegacyMcpTokenResolver) Resolve(ctx context.Context, raw string) (*Principal, error) {
	mt, err := r.mcpTokens.FindByHash(ctx, tokens.HashToken(raw))
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, nil
	}
	if !mt.IsValid() {
		return nil, ErrInvalidToken
	}
	return &Principal{
		UserID:     mt.UserID,
		SiteID:     mt.SiteID,
		McpTokenID: mt.ID,
		Scopes:     slices.Clone(services.SupportedScopes),
		Method:     MethodMcpToken,
	}, nil
}

// Authenticator runs the resolver chain in order and records usage of the
// McpToken behind every successful authentication.
type Authenticator struct {
	resolvers []CredentialResolver
	mcpTokens services.McpTokenService
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewAuthenticator(mcpTokens services.McpTokenService, resolvers ...CredentialResolver) *Authenticator {
	return &Authenticator{
		resolvers: resolvers,
		mcpTokens: mcpTokens,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewDefaultAuthenticator chains OAuth2 access tokens, then legacy McpToken
// secrets.
func NewDefaultAuthenticator(store *services.CredentialStore) *Authenticator {
	return NewAuthenticator(store.McpTokens,
		NewAccessTokenResolver(store),
		NewLegacyMcpTokenResolver(store.McpTokens),
	)
}

// Authenticate returns ErrInvalidToken for empty, unknown or unusable
// credentials. Any other error is a storage failure.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	for _, r := range a.resolvers {
		p, err := r.Resolve(ctx, raw)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				log.WithError(err).Error("Credential lookup failed")
			}
			return nil, err
		}
		if p != nil {
			a.Touch(p.McpTokenID)
			return p, nil
		}
	}
	return nil, ErrInvalidToken
}

// Touch updates the McpToken's last-used time in the background. Failures
// are logged and otherwise ignored.
func (a *Authenticator) Touch(mcpTokenID string) {
	if mcpTokenID == "" {
		return
	}
	at := a.now()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := a.mcpTokens.UpdateLastUsed(ctx, mcpTokenID, at); err != nil {
			log.WithFields(logrus.Fields{
				"mcp_token_id": mcpTokenID,
				"error":        err.Error(),
			}).Warn("Failed to update mcp token last used time")
		}
	}()
}

// Wait blocks until pending last-used updates have finished.
func (a *Authenticator) Wait() {
	a.wg.Wait()
}
