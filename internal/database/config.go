package database

import (
	"fmt"
	"strings"
	"time"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	// Driver is one of postgres, postgresql or sqlite. Empty means sqlite.
	Driver string

	// URL takes precedence over the discrete PostgreSQL fields when set
	URL string

	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// Path is the SQLite file, or :memory:
	Path string

	// Attempts and Backoff control connection retries. Zero values use
	// the package defaults.
	Attempts int
	Backoff  time.Duration
}

// driver normalizes the configured driver name.
func (c *DatabaseConfig) driver() string {
	switch strings.ToLower(c.Driver) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql":
		return DriverPostgres
	default:
		return strings.ToLower(c.Driver)
	}
}

// String returns a string representation with sensitive data masked
func (c *DatabaseConfig) String() string {
	return fmt.Sprintf("DatabaseConfig{Driver: %s, Host: %s, Port: %s, User: %s, Password: [REDACTED], Name: %s, SSLMode: %s, Path: %s}",
		c.driver(), c.Host, c.Port, c.User, c.Name, c.SSLMode, c.Path)
}

// DSN builds the connection string for the configured driver. File backed
// SQLite databases get a busy timeout so the CLI and the server can share
// one file.
func (c *DatabaseConfig) DSN() string {
	switch c.driver() {
	case DriverPostgres:
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	case DriverSQLite:
		if c.Path == "" || strings.Contains(c.Path, ":memory:") || strings.Contains(c.Path, "?") {
			return c.Path
		}
		return c.Path + "?_busy_timeout=5000&_foreign_keys=on"
	default:
		return ""
	}
}
