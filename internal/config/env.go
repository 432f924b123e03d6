package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides mirrors the LINGO_* variables. Zero values mean "not set".
type envOverrides struct {
	BackendURL      string `env:"LINGO_BACKEND_URL"`
	APIKey          string `env:"LINGO_API_KEY"`
	RequestTimeout  int    `env:"LINGO_REQUEST_TIMEOUT"`
	PollInterval    int    `env:"LINGO_POLL_INTERVAL"`
	PollMaxAttempts int    `env:"LINGO_POLL_MAX_ATTEMPTS"`
	StateDir        string `env:"LINGO_STATE_DIR"`
	LogLevel        string `env:"LINGO_LOG_LEVEL"`
	LogFormat       string `env:"LINGO_LOG_FORMAT"`
}

// loadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already present in the environment are left untouched.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v := strings.TrimSpace(overrides.BackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(overrides.APIKey); v != "" {
		c.Backend.APIKey = v
	}
	if overrides.RequestTimeout != 0 {
		c.Backend.RequestTimeoutSeconds = overrides.RequestTimeout
	}
	if overrides.PollInterval != 0 {
		c.Poll.IntervalSeconds = overrides.PollInterval
	}
	if overrides.PollMaxAttempts != 0 {
		c.Poll.MaxAttempts = overrides.PollMaxAttempts
	}
	if v := strings.TrimSpace(overrides.StateDir); v != "" {
		c.Paths.StateDir = v
	}
	if v := strings.TrimSpace(overrides.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(overrides.LogFormat); v != "" {
		c.Logging.Format = v
	}
	return nil
}
