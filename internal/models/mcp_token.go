package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMcpTokenNameLength bounds McpToken.Name.
const MaxMcpTokenNameLength = 255

var (
	ErrMcpTokenNameEmpty   = errors.New("token name cannot be empty")
	ErrMcpTokenNameTooLong = errors.New("token name cannot exceed 255 characters")
)

// McpToken is the long-lived grant a user creates to let an agent manage one
// site. Access and refresh tokens reference it through McpTokenID.
type McpToken struct {
	ID         string `gorm:"primaryKey"`
	TokenHash  string `gorm:"uniqueIndex;not null" json:"-"`
	UserID     uint   `gorm:"not null;index"`
	SiteID     uint   `gorm:"not null;index"`
	Name       string `gorm:"not null"`
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time `gorm:"index"`
}

func (McpToken) TableName() string {
	return "mcp_tokens"
}

// IsValid reports whether the token has not been revoked.
func (t *McpToken) IsValid() bool {
	return t.RevokedAt == nil
}

// ValidateMcpTokenName checks a user supplied token name.
func ValidateMcpTokenName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMcpTokenNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxMcpTokenNameLength {
		return ErrMcpTokenNameTooLong
	}
	return nil
}
