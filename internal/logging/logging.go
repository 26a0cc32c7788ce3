// Package logging builds the process logger from config.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/config"
)

// New returns a logger writing to w with the configured level and format.
func New(cfg config.LoggingConfig, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	logger.SetLevel(lvl)

	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging format %q must be text or json", cfg.Format)
	}
	return logger, nil
}
