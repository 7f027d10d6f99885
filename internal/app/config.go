package app

import (
	"errors"
	"log/slog"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// RootURL is the component URL the root realm resolves from.
	RootURL string
	// PackagesDir is the directory the file resolver serves manifests and
	// package contents from.
	PackagesDir string
	// OutDir, when set, is the root under which started instances get
	// outgoing directories.
	OutDir string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// Level maps the configured log level onto its slog value. Anything
// unrecognized falls back to info; the CLI rejects bad levels before they
// reach here.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RootURL == "" {
		return nil, errors.New("RootURL is a required configuration field and cannot be empty")
	}
	if cfg.PackagesDir == "" {
		return nil, errors.New("PackagesDir is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
