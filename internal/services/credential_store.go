package services

import (
	"context"

	"gorm.io/gorm"
)

// CredentialStore bundles the services that own codes, tokens and McpTokens.
type CredentialStore struct {
	db *gorm.DB

	Codes         AuthorizationCodeService
	AccessTokens  AccessTokenService
	RefreshTokens RefreshTokenService
	McpTokens     McpTokenService
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{
		db:            db,
		Codes:         NewAuthorizationCodeService(db),
		AccessTokens:  NewAccessTokenService(db),
		RefreshTokens: NewRefreshTokenService(db),
		McpTokens:     NewMcpTokenService(db),
	}
}

// Transaction runs fn with a store whose services share one database
// transaction. Returning an error from fn rolls everything back.
func (s *CredentialStore) Transaction(ctx context.Context, fn func(tx *CredentialStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewCredentialStore(tx))
	})
}
