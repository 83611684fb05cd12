package models

import (
	"time"
)

// AccessToken is a short-lived bearer credential. Only TokenHash is persisted;
// Token holds the raw value in memory right after minting.
type AccessToken struct {
	ID         uint   `gorm:"primaryKey"`
	Token      string `gorm:"-"`
	TokenHash  string `gorm:"uniqueIndex;not null"`
	ClientID   string `gorm:"not null;index"`
	UserID     uint   `gorm:"not null"`
	McpTokenID string `gorm:"not null;index"`
	Scope      string
	ExpiresAt  time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
}

func (AccessToken) TableName() string {
	return "oauth_access_tokens"
}

// IsValid is true strictly before ExpiresAt.
func (t *AccessToken) IsValid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// RefreshToken mints new access tokens. It is single-use: redeeming it sets
// UsedAt and issues a replacement.
type RefreshToken struct {
	ID         uint   `gorm:"primaryKey"`
	Token      string `gorm:"-"`
	TokenHash  string `gorm:"uniqueIndex;not null"`
	ClientID   string `gorm:"not null;index"`
	UserID     uint   `gorm:"not null"`
	McpTokenID string `gorm:"not null;index"`
	Scope      string
	ExpiresAt  time.Time `gorm:"not null;index"`
	UsedAt     *time.Time
	CreatedAt  time.Time
}

func (RefreshToken) TableName() string {
	return "oauth_refresh_tokens"
}

func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
