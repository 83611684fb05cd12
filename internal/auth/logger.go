package auth

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	switch os.Getenv("APP_ENV") {
	case "production":
		log.SetLevel(logrus.WarnLevel)
	case "", "development":
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// SetLogLevel lets the server binary apply LOG_LEVEL to this package.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
