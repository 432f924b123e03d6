package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeBackend()
	c.normalizePoll()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBaseURL
	}
	c.Backend.APIKey = strings.TrimSpace(c.Backend.APIKey)
	c.Backend.UserAgent = strings.TrimSpace(c.Backend.UserAgent)
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = defaultUserAgent
	}
	if c.Backend.RequestTimeoutSeconds == 0 {
		c.Backend.RequestTimeoutSeconds = defaultRequestTimeout
	}
}

func (c *Config) normalizePoll() {
	if c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = defaultPollInterval
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = defaultPollMaxAttempts
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SessionFile) == "" {
		c.Paths.SessionFile = filepath.Join(c.Paths.StateDir, defaultSessionFileName)
	}
	if c.Paths.SessionFile, err = expandPath(strings.TrimSpace(c.Paths.SessionFile)); err != nil {
		return fmt.Errorf("paths.session_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = filepath.Join(c.Paths.StateDir, defaultDatabaseFileName)
	}
	if c.Paths.Database, err = expandPath(strings.TrimSpace(c.Paths.Database)); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
