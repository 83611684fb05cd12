package models

import (
	"time"
)

// Site is a tenant of the CMS. McpTokens are scoped to exactly one site.
type Site struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Site) TableName() string {
	return "sites"
}

// Page is a node of a site's page tree. Path is the slash-joined slug chain
// ("/" for the root page).
type Page struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SiteID        uint       `gorm:"not null;uniqueIndex:idx_pages_site_path" json:"site_id"`
	ParentID      *uint      `gorm:"index" json:"parent_id,omitempty"`
	Slug          string     `gorm:"not null" json:"slug"`
	Path          string     `gorm:"not null;uniqueIndex:idx_pages_site_path" json:"path"`
	Title         string     `gorm:"not null" json:"title"`
	Content       string     `json:"content,omitempty"`
	Published     bool       `gorm:"not null;default:false" json:"published"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Position      int        `gorm:"not null;default:0" json:"position"`
	CoverImage    []byte     `json:"-"`
	CoverMimeType string     `json:"cover_mime_type,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Page) TableName() string {
	return "pages"
}

func (p *Page) IsRoot() bool {
	return p.ParentID == nil
}
