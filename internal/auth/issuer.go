package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/tokens"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/sirupsen/logrus"
)

const tokenTypeBearer = "Bearer"

// Description returned for every failed redemption. The specific reason is
// only logged.
const invalidGrantDescription = "The provided authorization grant is invalid, expired, revoked, or was issued to another client"

type IssuerConfig struct {
	CodeTTL                   time.Duration
	AccessTokenTTL            time.Duration
	RefreshTokenTTL           time.Duration
	RefreshReuseRevokesFamily bool
}

// Issuer implements the authorization code and refresh token grants on top
// of the credential store.
type Issuer struct {
	store *services.CredentialStore
	cfg   IssuerConfig
	now   func() time.Time
}

func NewIssuer(store *services.CredentialStore, cfg IssuerConfig) *Issuer {
	return &Issuer{
		store: store,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type IssueCodeRequest struct {
	ClientID            string
	UserID              uint
	McpTokenID          string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
}

type RedeemCodeRequest struct {
	Code         string
	ClientID     string
	RedirectURI  string
	CodeVerifier string
}

type RefreshRequest struct {
	RefreshToken string
	ClientID     string
	// Scope optionally narrows the original grant.
	Scope string
}

// TokenPair is the successful token endpoint response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// IssueCode creates a single-use authorization code.
func (i *Issuer) IssueCode(ctx context.Context, req IssueCodeRequest) (*models.AuthorizationCode, error) {
	if oerr := ValidatePKCEParams(req.CodeChallenge, req.CodeChallengeMethod); oerr != nil {
		return nil, oerr
	}
	code, err := tokens.GenerateSecureToken(tokens.CodeLength)
	if err != nil {
		return nil, err
	}

	ac := &models.AuthorizationCode{
		Code:                code,
		ClientID:            req.ClientID,
		UserID:              req.UserID,
		McpTokenID:          req.McpTokenID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		ExpiresAt:           i.now().Add(i.cfg.CodeTTL),
	}
	if err := i.store.Codes.Create(ctx, ac); err != nil {
		return nil, fmt.Errorf("store authorization code: %w", err)
	}

	log.WithFields(logrus.Fields{
		"client_id":    req.ClientID,
		"mcp_token_id": req.McpTokenID,
		"pkce":         req.CodeChallenge != "",
	}).Info("Authorization code issued")
	return ac, nil
}

// RedeemCode exchanges a code for an access/refresh pair. The checks, the
// consumption of the code and the minting run in one transaction.
func (i *Issuer) RedeemCode(ctx context.Context, req RedeemCodeRequest) (*TokenPair, error) {
	var pair *TokenPair
	err := i.store.Transaction(ctx, func(tx *services.CredentialStore) error {
		now := i.now()

		ac, err := tx.Codes.FindByCode(ctx, req.Code)
		if err != nil {
			return err
		}
		if ac == nil {
			return invalidGrant(req.ClientID, "authorization code not found")
		}
		if ac.UsedAt != nil {
			return invalidGrant(req.ClientID, "authorization code already used")
		}
		if !ac.IsValid(now) {
			return invalidGrant(req.ClientID, "authorization code expired")
		}
		if ac.ClientID != req.ClientID {
			return invalidGrant(req.ClientID, "authorization code issued to another client")
		}
		// A code issued without redirect_uri is not bound to one (RFC 6749 4.1.3).
		if ac.RedirectURI != "" && ac.RedirectURI != req.RedirectURI {
			return invalidGrant(req.ClientID, "redirect_uri does not match the authorization request")
		}
		if ac.HasChallenge() {
			if req.CodeVerifier == "" {
				return invalidGrant(req.ClientID, "code_verifier missing")
			}
			if !VerifyPKCE(ac.CodeChallenge, ac.CodeChallengeMethod, req.CodeVerifier) {
				return invalidGrant(req.ClientID, "code_verifier does not match code_challenge")
			}
		}

		mt, err := tx.McpTokens.FindByID(ctx, ac.McpTokenID)
		if err != nil {
			return err
		}
		if mt == nil || !mt.IsValid() {
			return invalidGrant(req.ClientID, "mcp token revoked or missing")
		}

		consumed, err := tx.Codes.Consume(ctx, ac.Code, now)
		if err != nil {
			return err
		}
		if !consumed {
			return invalidGrant(req.ClientID, "authorization code consumed concurrently")
		}

		pair, err = i.mint(ctx, tx, ac.ClientID, ac.UserID, ac.McpTokenID, ac.Scope, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithField("client_id", req.ClientID).Info("Authorization code redeemed")
	return pair, nil
}

// RedeemRefresh rotates a refresh token. The old token is consumed with a
// compare-and-swap, so two concurrent refreshes cannot both succeed.
func (i *Issuer) RedeemRefresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	hash := tokens.HashToken(req.RefreshToken)
	var reused *models.RefreshToken
	var pair *TokenPair

	err := i.store.Transaction(ctx, func(tx *services.CredentialStore) error {
		now := i.now()

		rt, err := tx.RefreshTokens.FindByHash(ctx, hash)
		if err != nil {
			return err
		}
		if rt == nil {
			return invalidGrant(req.ClientID, "refresh token not found")
		}
		if rt.ClientID != req.ClientID {
			return invalidGrant(req.ClientID, "refresh token issued to another client")
		}
		if rt.UsedAt != nil {
			reused = rt
			return invalidGrant(req.ClientID, "refresh token already used")
		}
		if !rt.IsValid(now) {
			return invalidGrant(req.ClientID, "refresh token expired")
		}

		scope := rt.Scope
		if req.Scope != "" {
			if !IsScopeSubset(req.Scope, rt.Scope) {
				return newOAuthError(oauth2errors.ErrInvalidScope, "requested scope exceeds the original grant")
			}
			scope = JoinScope(ParseScope(req.Scope))
		}

		mt, err := tx.McpTokens.FindByID(ctx, rt.McpTokenID)
		if err != nil {
			return err
		}
		if mt == nil || !mt.IsValid() {
			return invalidGrant(req.ClientID, "mcp token revoked or missing")
		}

		consumed, err := tx.RefreshTokens.Consume(ctx, hash, now)
		if err != nil {
			return err
		}
		if !consumed {
			reused = rt
			return invalidGrant(req.ClientID, "refresh token consumed concurrently")
		}

		pair, err = i.mint(ctx, tx, rt.ClientID, rt.UserID, rt.McpTokenID, scope, now)
		return err
	})

	if reused != nil {
		i.handleRefreshReuse(ctx, reused)
	}
	if err != nil {
		return nil, err
	}

	log.WithField("client_id", req.ClientID).Info("Refresh token rotated")
	return pair, nil
}

func (i *Issuer) handleRefreshReuse(ctx context.Context, rt *models.RefreshToken) {
	entry := log.WithFields(logrus.Fields{
		"client_id":    rt.ClientID,
		"mcp_token_id": rt.McpTokenID,
		"token_hash":   tokens.Prefix(rt.TokenHash),
	})
	entry.Warn("Refresh token reuse detected")

	if !i.cfg.RefreshReuseRevokesFamily {
		return
	}
	err := i.store.Transaction(ctx, func(tx *services.CredentialStore) error {
		if _, err := tx.AccessTokens.DeleteByMcpToken(ctx, rt.McpTokenID); err != nil {
			return err
		}
		_, err := tx.RefreshTokens.DeleteByMcpToken(ctx, rt.McpTokenID)
		return err
	})
	if err != nil {
		entry.WithError(err).Error("Failed to revoke token family after refresh reuse")
		return
	}
	entry.Warn("Token family revoked after refresh reuse")
}

// Revoke implements RFC 7009. Unknown tokens and tokens of other clients are
// ignored so callers cannot probe for valid values.
func (i *Issuer) Revoke(ctx context.Context, clientID, token, hint string) error {
	hash := tokens.HashToken(token)
	checkAccess := hint != "refresh_token"
	checkRefresh := hint != "access_token"

	if checkAccess {
		n, err := i.store.AccessTokens.DeleteByHashForClient(ctx, hash, clientID)
		if err != nil {
			return err
		}
		if n > 0 {
			log.WithField("client_id", clientID).Info("Access token revoked")
			return nil
		}
	}
	if checkRefresh {
		rt, err := i.store.RefreshTokens.FindByHash(ctx, hash)
		if err != nil {
			return err
		}
		if rt != nil && rt.ClientID == clientID {
			if _, err := i.store.RefreshTokens.Consume(ctx, hash, i.now()); err != nil {
				return err
			}
			log.WithField("client_id", clientID).Info("Refresh token revoked")
		}
	}
	return nil
}

func (i *Issuer) mint(ctx context.Context, tx *services.CredentialStore, clientID string, userID uint, mcpTokenID, scope string, now time.Time) (*TokenPair, error) {
	access, err := tokens.GenerateSecureToken(tokens.TokenLength)
	if err != nil {
		return nil, err
	}
	refresh, err := tokens.GenerateSecureToken(tokens.TokenLength)
	if err != nil {
		return nil, err
	}

	at := &models.AccessToken{
		Token:      access,
		TokenHash:  tokens.HashToken(access),
		ClientID:   clientID,
		UserID:     userID,
		McpTokenID: mcpTokenID,
		Scope:      scope,
		ExpiresAt:  now.Add(i.cfg.AccessTokenTTL),
	}
	if err := tx.AccessTokens.Create(ctx, at); err != nil {
		return nil, fmt.Errorf("store access token: %w", err)
	}
	rt := &models.RefreshToken{
		Token:      refresh,
		TokenHash:  tokens.HashToken(refresh),
		ClientID:   clientID,
		UserID:     userID,
		McpTokenID: mcpTokenID,
		Scope:      scope,
		ExpiresAt:  now.Add(i.cfg.RefreshTokenTTL),
	}
	if err := tx.RefreshTokens.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(i.cfg.AccessTokenTTL.Seconds()),
		RefreshToken: refresh,
		Scope:        scope,
	}, nil
}

func invalidGrant(clientID, reason string) *OAuthError {
	log.WithFields(logrus.Fields{
		"client_id": clientID,
		"reason":    reason,
	}).Debug("Grant rejected")
	return &OAuthError{Err: oauth2errors.ErrInvalidGrant, Description: invalidGrantDescription}
}
