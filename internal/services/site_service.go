package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"gorm.io/gorm"
)

type SiteService interface {
	CreateSite(ctx context.Context, site *models.Site) error
	GetSiteByID(ctx context.Context, id uint) (*models.Site, error)
	GetSiteByDomain(ctx context.Context, domain string) (*models.Site, error)
	ListSites(ctx context.Context) ([]models.Site, error)
}

type siteService struct {
	db *gorm.DB
}

func NewSiteService(db *gorm.DB) SiteService {
	return &siteService{db: db}
}

// CreateSite stores the site together with its root page.
func (s *siteService) CreateSite(ctx context.Context, site *models.Site) error {
	site.Domain = strings.ToLower(strings.TrimSpace(site.Domain))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(site).Error; err != nil {
			return translateError(err)
		}
		root := &models.Page{
			SiteID: site.ID,
			Slug:   "",
			Path:   "/",
			Title:  site.Title,
		}
		if err := tx.Create(root).Error; err != nil {
			return fmt.Errorf("create root page: %w", translateError(err))
		}
		return nil
	})
}

func (s *siteService) GetSiteByID(ctx context.Context, id uint) (*models.Site, error) {
	site, err := first[models.Site](s.db.WithContext(ctx).Where("id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("find site: %w", err)
	}
	return site, nil
}

func (s *siteService) GetSiteByDomain(ctx context.Context, domain string) (*models.Site, error) {
	site, err := first[models.Site](s.db.WithContext(ctx).Where("domain = ?", strings.ToLower(domain)))
	if err != nil {
		return nil, fmt.Errorf("find site by domain: %w", err)
	}
	return site, nil
}

func (s *siteService) ListSites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := s.db.WithContext(ctx).Order("domain").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}
