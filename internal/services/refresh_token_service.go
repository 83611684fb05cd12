package services

import (
	"context"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"gorm.io/gorm"
)

type RefreshTokenService interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	MarkUsed(ctx context.Context, hash string, at time.Time) error
	// Consume is the compare-and-swap used by rotation: only one caller can
	// move a refresh token from unused to used.
	Consume(ctx context.Context, hash string, at time.Time) (bool, error)
	DeleteByMcpToken(ctx context.Context, mcpTokenID string) (int64, error)
	// DeleteExpired removes expired rows and rows already rotated.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenService struct {
	db *gorm.DB
}

func NewRefreshTokenService(db *gorm.DB) RefreshTokenService {
	return &refreshTokenService{db: db}
}

func (s *refreshTokenService) Create(ctx context.Context, token *models.RefreshToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (s *refreshTokenService) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	token, err := first[models.RefreshToken](s.db.WithContext(ctx).Where("token_hash = ?", hash))
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return token, nil
}

func (s *refreshTokenService) MarkUsed(ctx context.Context, hash string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash).
		Update("used_at", at).Error
	if err != nil {
		return fmt.Errorf("mark refresh token used: %w", err)
	}
	return nil
}

func (s *refreshTokenService) Consume(ctx context.Context, hash string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND used_at IS NULL", hash).
		Update("used_at", at)
	if result.Error != nil {
		return false, fmt.Errorf("consume refresh token: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *refreshTokenService) DeleteByMcpToken(ctx context.Context, mcpTokenID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("mcp_token_id = ?", mcpTokenID).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete refresh tokens of mcp token: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *refreshTokenService) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ? OR used_at IS NOT NULL", now).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
