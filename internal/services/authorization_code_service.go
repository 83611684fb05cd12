package services

import (
	"context"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"gorm.io/gorm"
)

// AuthorizationCodeService persists authorization codes issued by the
// authorize step.
type AuthorizationCodeService interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
	// FindByCode returns (nil, nil) when the code does not exist.
	FindByCode(ctx context.Context, code string) (*models.AuthorizationCode, error)
	MarkUsed(ctx context.Context, code string, at time.Time) error
	// Consume stamps used_at only if the code is still unused. It reports
	// false when another request consumed it first.
	Consume(ctx context.Context, code string, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type authorizationCodeService struct {
	db *gorm.DB
}

func NewAuthorizationCodeService(db *gorm.DB) AuthorizationCodeService {
	return &authorizationCodeService{db: db}
}

func (s *authorizationCodeService) Create(ctx context.Context, code *models.AuthorizationCode) error {
	if err := s.db.WithContext(ctx).Create(code).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (s *authorizationCodeService) FindByCode(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	ac, err := first[models.AuthorizationCode](s.db.WithContext(ctx).Where("code = ?", code))
	if err != nil {
		return nil, fmt.Errorf("find authorization code: %w", err)
	}
	return ac, nil
}

func (s *authorizationCodeService) MarkUsed(ctx context.Context, code string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.AuthorizationCode{}).
		Where("code = ?", code).
		Update("used_at", at).Error
	if err != nil {
		return fmt.Errorf("mark authorization code used: %w", err)
	}
	return nil
}

func (s *authorizationCodeService) Consume(ctx context.Context, code string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.AuthorizationCode{}).
		Where("code = ? AND used_at IS NULL", code).
		Update("used_at", at)
	if result.Error != nil {
		return false, fmt.Errorf("consume authorization code: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *authorizationCodeService) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.AuthorizationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired authorization codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
