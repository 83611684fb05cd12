package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	switch os.Getenv("APP_ENV") {
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	case "", "development":
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// SetLogLevel changes the level of the package logger.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

const (
	defaultAttempts = 5
	defaultBackoff  = time.Second
	slowQuery       = 200 * time.Millisecond
)

// gormConfig returns the settings shared by every driver. Duplicate-key
// violations surface as gorm.ErrDuplicatedKey, timestamps are stored in UTC
// and SQL warnings go through the package logger.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

func dialector(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.driver() {
	case DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
	}
}

// InitDatabase opens and pings the configured database. Failed attempts are
// retried with a doubling delay.
func InitDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := cfg.Backoff
	if delay <= 0 {
		delay = defaultBackoff
	}

	log.WithFields(logrus.Fields{
		"db_driver": cfg.driver(),
		"db_host":   cfg.Host,
		"db_name":   cfg.Name,
		"db_path":   cfg.Path,
	}).Info("Initializing database connection")

	for attempt := 1; ; attempt++ {
		db, openErr := open(dial)
		if openErr == nil {
			sqlDB, _ := db.DB()
			configureConnectionPool(cfg.driver(), sqlDB)
			log.WithFields(logrus.Fields{
				"db_driver": cfg.driver(),
				"attempt":   attempt,
			}).Info("Database initialized successfully")
			return db, nil
		}
		err = openErr

		log.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": attempts,
		}).WithError(err).Warn("Database connection attempt failed")
		if attempt >= attempts {
			break
		}
		time.Sleep(delay)
		delay *= 2
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}

func open(dial gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dial, gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// configureConnectionPool sizes the pool per driver. SQLite allows a single
// writer and an in-memory database lives only as long as its connection, so
// it gets one connection that is never recycled.
func configureConnectionPool(driver string, sqlDB *sql.DB) {
	maxOpen, maxIdle, lifetime := 25, 5, 5*time.Minute
	if driver == DriverSQLite {
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	log.WithFields(logrus.Fields{
		"max_open_conns":    maxOpen,
		"max_idle_conns":    maxIdle,
		"conn_max_lifetime": lifetime.String(),
	}).Debug("Connection pool configured")
}
