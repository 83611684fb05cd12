package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/database"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory database. A single connection keeps every
// query on the same in-memory instance.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestSite(t *testing.T, db *gorm.DB) *models.Site {
	t.Helper()
	site := &models.Site{Domain: "example.com", Title: "Example"}
	require.NoError(t, NewSiteService(db).CreateSite(context.Background(), site))
	return site
}

func createTestMcpToken(t *testing.T, db *gorm.DB, siteID uint) (*models.McpToken, string) {
	t.Helper()
	token, secret, err := NewMcpTokenService(db).Create(context.Background(), 1, siteID, "agent")
	require.NoError(t, err)
	return token, secret
}

func logrusDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
