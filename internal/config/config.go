// Package config loads run options from a .env file and the process
// environment, and builds the structured logger every subcommand shares.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// NewLogger builds a *logrus.Logger at the given level (falling back to
// MYSQLDIFFPLAN_LOG_LEVEL, then "info"), writing to stdout in text form.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()

	levelStr := level
	if levelStr == "" {
		levelStr = os.Getenv("MYSQLDIFFPLAN_LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = "info"
	}

	parsed, err := logrus.ParseLevel(levelStr)
	if err != nil {
		parsed = logrus.InfoLevel
	}

	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stdout)
	return logger
}

// LoadEnv loads envFile into the process environment if present, logging
// what it did. A missing file is not an error — flags and existing
// environment variables can supply everything envFile would have.
func LoadEnv(envFile string, logger *logrus.Logger) {
	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err != nil {
		logger.Debugf("no env file at %s, using existing environment variables", envFile)
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("error loading %s: %v", envFile, err)
		return
	}
	logger.Infof("loaded environment variables from %s", envFile)
}

// DSN resolves a data source name from an explicit flag value, falling
// back to the environment variable named by envVar (for example
// MYSQLDIFFPLAN_SOURCE_DSN) when the flag value is empty.
func DSN(flagValue, envVar string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envVar)
}
