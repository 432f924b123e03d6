package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL, got %q (set LINGO_BACKEND_URL or edit the config file)", c.Backend.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("backend.base_url is missing a host: %q", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		return errors.New("backend.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePoll() error {
	return ensurePositiveMap(map[string]int{
		"poll.interval_seconds": c.Poll.IntervalSeconds,
		"poll.max_attempts":     c.Poll.MaxAttempts,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
