package main

import (
	"fmt"
	"os"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/config"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/database"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	output string
}

// newRootCmd builds the command tree. Tests build a fresh tree per run.
func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mcpctl",
		Short: "Administer the doxyde MCP gateway",
		Long:  `mcpctl manages the gateway's database directly: sites, users,
McpTokens and OAuth2 clients. It reads the same environment variables
(and .env file) as the server.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutputFormat(opts.output)
		},
	}
	cmd.SetVersionTemplate(`{{printf "mcpctl version %s\n" .Version}}`)
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(formatTable), "Output format: table, json or yaml")

	cmd.AddCommand(
		newSiteCmd(opts),
		newUserCmd(opts),
		newTokenCmd(opts),
		newClientCmd(opts),
		newSweepCmd(opts),
	)
	return cmd
}

// Execute runs mcpctl and exits non-zero on failure.
func Execute(version string) {
	if err := newRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase connects with the server's configuration. The returned
// function closes the connection.
func openDatabase() (*gorm.DB, func(), error) {
	_ = godotenv.Load()

	conf, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		URL:      conf.DatabaseURL,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		Path:     conf.DBPath,
	})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if err := database.Migrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return db, closeDB, nil
}

// withStore opens the database for the duration of fn.
func withStore(fn func(db *gorm.DB, store *services.CredentialStore) error) error {
	db, closeDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(db, services.NewCredentialStore(db))
}
