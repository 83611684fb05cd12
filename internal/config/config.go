package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// SSE response modes
const (
	SSEResponseSync   = "sync"
	SSEResponseStream = "stream"
)

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port        int    `json:"port"`
	Host        string `json:"host"`
	Environment string `json:"environment"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	DatabaseURL string `json:"database_url"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret           string        `json:"jwt_secret"`
	SessionCookieSecure bool          `json:"session_cookie_secure"`
	SessionTTL          time.Duration `json:"session_ttl"`

	// Token lifetimes
	AuthCodeTTL               time.Duration `json:"auth_code_ttl"`
	AccessTokenTTL            time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL           time.Duration `json:"refresh_token_ttl"`
	RefreshReuseRevokesFamily bool          `json:"refresh_reuse_revokes_family"`

	// SSE transport
	SSEKeepAlive          time.Duration `json:"sse_keepalive"`
	SSESessionIdleTimeout time.Duration `json:"sse_session_idle_timeout"`
	SSEMaxSessions        int           `json:"sse_max_sessions"`
	SSEResponseMode       string        `json:"sse_response_mode"`

	// Maintenance
	SweepInterval         time.Duration `json:"sweep_interval"`
	RevokedTokenRetention time.Duration `json:"revoked_token_retention"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Environment: %s, DBDriver: %s, DBPath: %s, DatabaseURL: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], LogLevel: %s, JWTSecret: [REDACTED], SessionTTL: %s, AuthCodeTTL: %s, AccessTokenTTL: %s, RefreshTokenTTL: %s, SSEKeepAlive: %s, SSESessionIdleTimeout: %s, SSEMaxSessions: %d, SSEResponseMode: %s, SweepInterval: %s}",
		c.Port, c.Host, c.Environment, c.DBDriver, c.DBPath, maskDatabaseURL(c.DatabaseURL), c.DBHost, c.DBName, c.DBUser, c.LogLevel,
		c.SessionTTL, c.AuthCodeTTL, c.AccessTokenTTL, c.RefreshTokenTTL, c.SSEKeepAlive, c.SSESessionIdleTimeout, c.SSEMaxSessions, c.SSEResponseMode, c.SweepInterval)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It also validates formats like DatabaseURL and the SSE response mode
// Returns an error if any environment variable is invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, err
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	config := &Config{
		Port:        port,
		Host:        GetEnvWithDefault("APP_HOST", "localhost"),
		Environment: GetEnvWithDefault("APP_ENV", "development"),

		DBDriver:    GetEnvWithDefault("DB_DRIVER", "sqlite"),
		DBPath:      GetEnvWithDefault("DB_PATH", "doxyde.sqlite"),
		DatabaseURL: dbURL,
		DBHost:      GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:      GetEnvWithDefault("DB_PORT", "5432"),
		DBName:      GetEnvWithDefault("DB_NAME", "doxyde"),
		DBUser:      GetEnvWithDefault("DB_USER", "doxyde"),
		DBPassword:  GetEnvWithDefault("DB_PASSWORD", ""),
		DBSSLMode:   GetEnvWithDefault("DB_SSLMODE", "disable"),

		LogLevel: GetEnvWithDefault("LOG_LEVEL", "info"),

		JWTSecret:           GetEnvWithDefault("JWT_SECRET", "secret"),
		SessionCookieSecure: GetEnvAsType("SESSION_COOKIE_SECURE", false),
		SessionTTL:          GetEnvAsType("SESSION_TTL", 12*time.Hour),

		AuthCodeTTL:               GetEnvAsType("AUTH_CODE_TTL", 10*time.Minute),
		AccessTokenTTL:            GetEnvAsType("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:           GetEnvAsType("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		RefreshReuseRevokesFamily: GetEnvAsType("REFRESH_REUSE_REVOKES_FAMILY", false),

		SSEKeepAlive:          GetEnvAsType("SSE_KEEPALIVE", 30*time.Second),
		SSESessionIdleTimeout: GetEnvAsType("SSE_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SSEMaxSessions:        GetEnvAsType("SSE_MAX_SESSIONS", 1000),
		SSEResponseMode:       GetEnvWithDefault("SSE_RESPONSE_MODE", SSEResponseSync),

		SweepInterval:         GetEnvAsType("SWEEP_INTERVAL", time.Hour),
		RevokedTokenRetention: GetEnvAsType("REVOKED_TOKEN_RETENTION", 30*24*time.Hour),
	}

	if config.SSEResponseMode != SSEResponseSync && config.SSEResponseMode != SSEResponseStream {
		return nil, fmt.Errorf("invalid SSE_RESPONSE_MODE %q (supported: %s, %s)", config.SSEResponseMode, SSEResponseSync, SSEResponseStream)
	}
	if config.AccessTokenTTL <= 0 || config.RefreshTokenTTL <= 0 || config.AuthCodeTTL <= 0 || config.SessionTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive durations")
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		durationValue, err := time.ParseDuration(value)
		if err != nil {
			log.Warnf("Environment variable %s is not a valid duration, using default value", key)
			return defaultValue
		}
		return any(durationValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
