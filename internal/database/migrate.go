package database

import (
	"fmt"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the gateway owns.
func Migrate(db *gorm.DB) error {
	log.Info("Running database migrations")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Site{},
		&models.Page{},
		&models.OAuthClient{},
		&models.AuthorizationCode{},
		&models.AccessToken{},
		&models.RefreshToken{},
		&models.McpToken{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
