package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"lingo/internal/config"
	"lingo/internal/history"
	"lingo/internal/jobs"
	"lingo/internal/logging"
	"lingo/internal/services/backend"
	"lingo/internal/session"
)

type commandContext struct {
	configFlag *string
	keyFlag    *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, keyFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		keyFlag:    keyFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) baseLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) commandLogger(cmd *cobra.Command) *slog.Logger {
	return logging.WithContext(cmd.Context(), logging.NewComponentLogger(c.baseLogger(), "cli"))
}

func (c *commandContext) client() (*backend.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey,
		backend.WithUserAgent(cfg.Backend.UserAgent),
		backend.WithTimeout(cfg.RequestTimeout()),
		backend.WithLogger(logging.NewComponentLogger(c.baseLogger(), "backend")),
	)
}

// callOptions resolves the key for this invocation: --key, then the logged-in
// session, then the client's configured default.
func (c *commandContext) callOptions() ([]backend.CallOption, error) {
	if c.keyFlag != nil {
		if key := strings.TrimSpace(*c.keyFlag); key != "" {
			return []backend.CallOption{backend.WithAPIKey(key)}, nil
		}
	}
	store, err := c.sessionStore()
	if err != nil {
		return nil, err
	}
	rec, err := store.Get()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if key := strings.TrimSpace(rec.APIKey); key != "" {
		return []backend.CallOption{backend.WithAPIKey(key)}, nil
	}
	return nil, nil
}

func (c *commandContext) sessionStore() (*session.FileStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(cfg.Paths.SessionFile)
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// openLedger opens the history store for bookkeeping that must not fail the
// command. Errors are logged and yield a nil store.
func (c *commandContext) openLedger(cmd *cobra.Command) *history.Store {
	cfg, err := c.ensureConfig()
	if err == nil {
		var store *history.Store
		if store, err = history.Open(cfg); err == nil {
			return store
		}
	}
	c.commandLogger(cmd).Warn("open job history", logging.Error(err))
	return nil
}

type pollSettings struct {
	interval    time.Duration
	maxAttempts int
}

func (p *pollSettings) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&p.interval, "interval", 0, "Delay between status checks (default from config)")
	cmd.Flags().IntVar(&p.maxAttempts, "max-attempts", 0, "Maximum status checks before giving up (default from config)")
}

func (c *commandContext) poller(client *backend.Client, settings pollSettings, opts []backend.CallOption) (*jobs.Poller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	interval := settings.interval
	if interval <= 0 {
		interval = cfg.PollInterval()
	}
	attempts := settings.maxAttempts
	if attempts <= 0 {
		attempts = cfg.Poll.MaxAttempts
	}
	return jobs.NewPoller(client,
		jobs.WithInterval(interval),
		jobs.WithMaxAttempts(attempts),
		jobs.WithCallOptions(opts...),
		jobs.WithLogger(c.baseLogger()),
	), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
