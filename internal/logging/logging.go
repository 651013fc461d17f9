// Package logging constructs the single structured logger instance threaded
// through every component constructor in this module.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured from the S3LOGEXTRACTION_LOG_LEVEL
// and S3LOGEXTRACTION_LOG_FORMAT environment variables, defaulting to
// info-level text logging to stderr.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(os.Getenv("S3LOGEXTRACTION_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("S3LOGEXTRACTION_LOG_FORMAT") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
