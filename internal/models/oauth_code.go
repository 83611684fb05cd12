package models

import (
	"time"
)

// AuthorizationCode is a single-use grant issued at the authorize step and
// redeemed once at the token endpoint. RedirectURI is empty when the
// authorize request omitted it.
type AuthorizationCode struct {
	Code                string `gorm:"primaryKey"`
	ClientID            string `gorm:"not null;index"`
	UserID              uint   `gorm:"not null"`
	McpTokenID          string `gorm:"not null;index"`
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time `gorm:"not null;index"`
	UsedAt              *time.Time
	CreatedAt           time.Time
}

func (AuthorizationCode) TableName() string {
	return "oauth_authorization_codes"
}

// IsValid reports whether the code is unused and not yet expired at now.
func (c *AuthorizationCode) IsValid(now time.Time) bool {
	return c.UsedAt == nil && now.Before(c.ExpiresAt)
}

// HasChallenge reports whether the code was issued with a PKCE challenge.
func (c *AuthorizationCode) HasChallenge() bool {
	return c.CodeChallenge != ""
}
