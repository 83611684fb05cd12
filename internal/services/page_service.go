package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidSlug      = errors.New("slug must be lowercase letters, digits and single hyphens")
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrRootPage         = errors.New("operation not allowed on the root page")
	ErrPageHasChildren  = errors.New("page has child pages")
	ErrInvalidMove      = errors.New("a page cannot be moved below itself")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var coverMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type CreatePageInput struct {
	// ParentID defaults to the site's root page.
	ParentID *uint
	Slug     string
	Title    string
	Content  string
}

// UpdatePageInput carries the fields to change; nil fields are left as is.
type UpdatePageInput struct {
	Title   *string
	Content *string
	Slug    *string
}

// PageService is the content store the MCP tools operate on. Every
// operation is scoped to one site.
type PageService interface {
	ListPages(ctx context.Context, siteID uint) ([]models.Page, error)
	GetPage(ctx context.Context, siteID, id uint) (*models.Page, error)
	GetPageByPath(ctx context.Context, siteID uint, path string) (*models.Page, error)
	SearchPages(ctx context.Context, siteID uint, query string, limit int) ([]models.Page, error)
	CreatePage(ctx context.Context, siteID uint, in CreatePageInput) (*models.Page, error)
	UpdatePage(ctx context.Context, siteID, id uint, in UpdatePageInput) (*models.Page, error)
	PublishPage(ctx context.Context, siteID, id uint, published bool, at time.Time) (*models.Page, error)
	MovePage(ctx context.Context, siteID, id, parentID uint, position int) (*models.Page, error)
	DeletePage(ctx context.Context, siteID, id uint) error
	SetCover(ctx context.Context, siteID, id uint, data []byte, mimeType string) (*models.Page, error)
}

type pageService struct {
	db *gorm.DB
}

func NewPageService(db *gorm.DB) PageService {
	return &pageService{db: db}
}

func (s *pageService) ListPages(ctx context.Context, siteID uint) ([]models.Page, error) {
	var pages []models.Page
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("path").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

func (s *pageService) GetPage(ctx context.Context, siteID, id uint) (*models.Page, error) {
	page, err := first[models.Page](s.db.WithContext(ctx).Where("site_id = ? AND id = ?", siteID, id))
	if err != nil {
		return nil, fmt.Errorf("find page: %w", err)
	}
	return page, nil
}

func (s *pageService) GetPageByPath(ctx context.Context, siteID uint, path string) (*models.Page, error) {
	page, err := first[models.Page](s.db.WithContext(ctx).Where("site_id = ? AND path = ?", siteID, NormalizePath(path)))
	if err != nil {
		return nil, fmt.Errorf("find page by path: %w", err)
	}
	return page, nil
}

func (s *pageService) SearchPages(ctx context.Context, siteID uint, query string, limit int) ([]models.Page, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var pages []models.Page
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern).
		Order("path").
		Limit(limit).
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	return pages, nil
}

func (s *pageService) CreatePage(ctx context.Context, siteID uint, in CreatePageInput) (*models.Page, error) {
	if !slugPattern.MatchString(in.Slug) {
		return nil, ErrInvalidSlug
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrEmptyTitle
	}

	var page *models.Page
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parent, err := findParent(tx, siteID, in.ParentID)
		if err != nil {
			return err
		}

		var siblings int64
		if err := tx.Model(&models.Page{}).Where("site_id = ? AND parent_id = ?", siteID, parent.ID).Count(&siblings).Error; err != nil {
			return fmt.Errorf("count sibling pages: %w", err)
		}

		page = &models.Page{
			SiteID:   siteID,
			ParentID: &parent.ID,
			Slug:     in.Slug,
			Path:     childPath(parent.Path, in.Slug),
			Title:    strings.TrimSpace(in.Title),
			Content:  in.Content,
			Position: int(siblings),
		}
		if err := tx.Create(page).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *pageService) UpdatePage(ctx context.Context, siteID, id uint, in UpdatePageInput) (*models.Page, error) {
	var page *models.Page
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		page, err = loadPage(tx, siteID, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return ErrEmptyTitle
			}
			page.Title = strings.TrimSpace(*in.Title)
		}
		if in.Content != nil {
			page.Content = *in.Content
		}
		oldPath := page.Path
		if in.Slug != nil && *in.Slug != page.Slug {
			if page.IsRoot() {
				return ErrRootPage
			}
			if !slugPattern.MatchString(*in.Slug) {
				return ErrInvalidSlug
			}
			page.Slug = *in.Slug
			page.Path = childPath(parentPath(oldPath), page.Slug)
		}

		if err := tx.Save(page).Error; err != nil {
			return translateError(err)
		}
		if page.Path != oldPath {
			return rewriteSubtree(tx, siteID, oldPath, page.Path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *pageService) PublishPage(ctx context.Context, siteID, id uint, published bool, at time.Time) (*models.Page, error) {
	page, err := loadPage(s.db.WithContext(ctx), siteID, id)
	if err != nil {
		return nil, err
	}
	page.Published = published
	if published {
		page.PublishedAt = &at
	} else {
		page.PublishedAt = nil
	}
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("publish page: %w", err)
	}
	return page, nil
}

func (s *pageService) MovePage(ctx context.Context, siteID, id, parentID uint, position int) (*models.Page, error) {
	var page *models.Page
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		page, err = loadPage(tx, siteID, id)
		if err != nil {
			return err
		}
		if page.IsRoot() {
			return ErrRootPage
		}
		parent, err := loadPage(tx, siteID, parentID)
		if err != nil {
			return err
		}
		if parent.ID == page.ID || strings.HasPrefix(parent.Path, page.Path+"/") {
			return ErrInvalidMove
		}

		if position < 0 {
			var siblings int64
			if err := tx.Model(&models.Page{}).Where("site_id = ? AND parent_id = ?", siteID, parent.ID).Count(&siblings).Error; err != nil {
				return fmt.Errorf("count sibling pages: %w", err)
			}
			position = int(siblings)
		}

		oldPath := page.Path
		page.ParentID = &parent.ID
		page.Path = childPath(parent.Path, page.Slug)
		page.Position = position
		if err := tx.Save(page).Error; err != nil {
			return translateError(err)
		}
		if page.Path != oldPath {
			return rewriteSubtree(tx, siteID, oldPath, page.Path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *pageService) DeletePage(ctx context.Context, siteID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		page, err := loadPage(tx, siteID, id)
		if err != nil {
			return err
		}
		if page.IsRoot() {
			return ErrRootPage
		}
		var children int64
		if err := tx.Model(&models.Page{}).Where("site_id = ? AND parent_id = ?", siteID, id).Count(&children).Error; err != nil {
			return fmt.Errorf("count child pages: %w", err)
		}
		if children > 0 {
			return ErrPageHasChildren
		}
		if err := tx.Delete(&models.Page{}, id).Error; err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
		return nil
	})
}

// SetCover replaces the cover image. Empty data clears it.
func (s *pageService) SetCover(ctx context.Context, siteID, id uint, data []byte, mimeType string) (*models.Page, error) {
	if len(data) > 0 && !coverMimeTypes[mimeType] {
		return nil, ErrUnsupportedImage
	}
	page, err := loadPage(s.db.WithContext(ctx), siteID, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		page.CoverImage = nil
		page.CoverMimeType = ""
	} else {
		page.CoverImage = data
		page.CoverMimeType = mimeType
	}
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("set page cover: %w", err)
	}
	return page, nil
}

// NormalizePath turns "docs/intro/" into "/docs/intro". The root is "/".
func NormalizePath(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	return "/" + path
}

func childPath(parent, slug string) string {
	if parent == "/" {
		return "/" + slug
	}
	return parent + "/" + slug
}

func parentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

func loadPage(db *gorm.DB, siteID, id uint) (*models.Page, error) {
	page, err := first[models.Page](db.Where("site_id = ? AND id = ?", siteID, id))
	if err != nil {
		return nil, fmt.Errorf("find page: %w", err)
	}
	if page == nil {
		return nil, ErrNotFound
	}
	return page, nil
}

func findParent(tx *gorm.DB, siteID uint, parentID *uint) (*models.Page, error) {
	if parentID != nil {
		return loadPage(tx, siteID, *parentID)
	}
	root, err := first[models.Page](tx.Where("site_id = ? AND parent_id IS NULL", siteID))
	if err != nil {
		return nil, fmt.Errorf("find root page: %w", err)
	}
	if root == nil {
		return nil, ErrNotFound
	}
	return root, nil
}

// rewriteSubtree moves every descendant of oldPath below newPath.
func rewriteSubtree(tx *gorm.DB, siteID uint, oldPath, newPath string) error {
	var descendants []models.Page
	if err := tx.Where("site_id = ? AND path LIKE ?", siteID, oldPath+"/%").Find(&descendants).Error; err != nil {
		return fmt.Errorf("load descendants: %w", err)
	}
	for _, d := range descendants {
		updated := newPath + strings.TrimPrefix(d.Path, oldPath)
		if err := tx.Model(&models.Page{}).Where("id = ?", d.ID).Update("path", updated).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}
