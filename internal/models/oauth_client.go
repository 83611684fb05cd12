package models

import (
	"slices"
	"time"

	"gorm.io/gorm"
)

const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodNone              = "none"

	DefaultClientScope = "mcp:read mcp:write"
)

// OAuthClient is a registered OAuth2 client. Public clients have no secret.
type OAuthClient struct {
	ID                      string         `gorm:"primaryKey" json:"client_id"`
	SecretHash              *string        `json:"-"`
	Name                    string         `gorm:"not null" json:"client_name"`
	RedirectURIs            []string       `gorm:"serializer:json" json:"redirect_uris"`
	GrantTypes              []string       `gorm:"serializer:json" json:"grant_types"`
	ResponseTypes           []string       `gorm:"serializer:json" json:"response_types"`
	Scope                   string         `json:"scope"`
	TokenEndpointAuthMethod string         `json:"token_endpoint_auth_method"`
	UserID                  *uint          `gorm:"index" json:"user_id,omitempty"` // admin owner, nil for self-registered clients
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	DeletedAt               gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}

func (c *OAuthClient) IsPublic() bool {
	return c.SecretHash == nil
}

func (c *OAuthClient) AllowsGrant(grantType string) bool {
	return slices.Contains(c.GrantTypes, grantType)
}
