package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/tokens"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// McpTokenService manages the per-site grants users hand to agents.
type McpTokenService interface {
	// Create stores a new token and returns it together with the raw secret.
	// The secret is not recoverable afterwards.
	Create(ctx context.Context, userID, siteID uint, name string) (*models.McpToken, string, error)
	FindByID(ctx context.Context, id string) (*models.McpToken, error)
	FindByHash(ctx context.Context, hash string) (*models.McpToken, error)
	FindByUser(ctx context.Context, userID uint) ([]models.McpToken, error)
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
	// Revoke marks the token revoked and deletes every access and refresh
	// token minted under it.
	Revoke(ctx context.Context, id string, at time.Time) error
	DeleteRevoked(ctx context.Context, olderThan time.Time) (int64, error)
}

type mcpTokenService struct {
	db *gorm.DB
}

func NewMcpTokenService(db *gorm.DB) McpTokenService {
	return &mcpTokenService{db: db}
}

func (s *mcpTokenService) Create(ctx context.Context, userID, siteID uint, name string) (*models.McpToken, string, error) {
	if err := models.ValidateMcpTokenName(name); err != nil {
		return nil, "", err
	}
	secret, err := tokens.GenerateSecureToken(tokens.SecretLength)
	if err != nil {
		return nil, "", err
	}

	token := &models.McpToken{
		ID:        uuid.NewString(),
		TokenHash: tokens.HashToken(secret),
		UserID:    userID,
		SiteID:    siteID,
		Name:      strings.TrimSpace(name),
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, "", translateError(err)
	}
	return token, secret, nil
}

func (s *mcpTokenService) FindByID(ctx context.Context, id string) (*models.McpToken, error) {
	token, err := first[models.McpToken](s.db.WithContext(ctx).Where("id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("find mcp token: %w", err)
	}
	return token, nil
}

func (s *mcpTokenService) FindByHash(ctx context.Context, hash string) (*models.McpToken, error) {
	token, err := first[models.McpToken](s.db.WithContext(ctx).Where("token_hash = ?", hash))
	if err != nil {
		return nil, fmt.Errorf("find mcp token by hash: %w", err)
	}
	return token, nil
}

func (s *mcpTokenService) FindByUser(ctx context.Context, userID uint) ([]models.McpToken, error) {
	var list []models.McpToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list mcp tokens: %w", err)
	}
	return list, nil
}

func (s *mcpTokenService) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.McpToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
	if err != nil {
		return fmt.Errorf("update mcp token last used: %w", err)
	}
	return nil
}

func (s *mcpTokenService) Revoke(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := first[models.McpToken](tx.Where("id = ?", id))
		if err != nil {
			return fmt.Errorf("find mcp token: %w", err)
		}
		if token == nil {
			return ErrNotFound
		}
		if token.RevokedAt == nil {
			if err := tx.Model(&models.McpToken{}).Where("id = ?", id).Update("revoked_at", at).Error; err != nil {
				return fmt.Errorf("revoke mcp token: %w", err)
			}
		}
		if _, err := NewAccessTokenService(tx).DeleteByMcpToken(ctx, id); err != nil {
			return err
		}
		if _, err := NewRefreshTokenService(tx).DeleteByMcpToken(ctx, id); err != nil {
			return err
		}
		return nil
	})
}

func (s *mcpTokenService) DeleteRevoked(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("revoked_at IS NOT NULL AND revoked_at < ?", olderThan).
		Delete(&models.McpToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete revoked mcp tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
