package services

import (
	"context"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"gorm.io/gorm"
)

type AccessTokenService interface {
	Create(ctx context.Context, token *models.AccessToken) error
	FindByHash(ctx context.Context, hash string) (*models.AccessToken, error)
	DeleteByHash(ctx context.Context, hash string) (int64, error)
	DeleteByHashForClient(ctx context.Context, hash, clientID string) (int64, error)
	DeleteByMcpToken(ctx context.Context, mcpTokenID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type accessTokenService struct {
	db *gorm.DB
}

func NewAccessTokenService(db *gorm.DB) AccessTokenService {
	return &accessTokenService{db: db}
}

func (s *accessTokenService) Create(ctx context.Context, token *models.AccessToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (s *accessTokenService) FindByHash(ctx context.Context, hash string) (*models.AccessToken, error) {
	token, err := first[models.AccessToken](s.db.WithContext(ctx).Where("token_hash = ?", hash))
	if err != nil {
		return nil, fmt.Errorf("find access token: %w", err)
	}
	return token, nil
}

func (s *accessTokenService) DeleteByHash(ctx context.Context, hash string) (int64, error) {
	return s.delete(ctx, "delete access token", "token_hash = ?", hash)
}

func (s *accessTokenService) DeleteByHashForClient(ctx context.Context, hash, clientID string) (int64, error) {
	return s.delete(ctx, "delete access token", "token_hash = ? AND client_id = ?", hash, clientID)
}

func (s *accessTokenService) DeleteByMcpToken(ctx context.Context, mcpTokenID string) (int64, error) {
	return s.delete(ctx, "delete access tokens of mcp token", "mcp_token_id = ?", mcpTokenID)
}

func (s *accessTokenService) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.delete(ctx, "delete expired access tokens", "expires_at <= ?", now)
}

func (s *accessTokenService) delete(ctx context.Context, op string, query string, args ...any) (int64, error) {
	result := s.db.WithContext(ctx).Where(query, args...).Delete(&models.AccessToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, result.Error)
	}
	return result.RowsAffected, nil
}
