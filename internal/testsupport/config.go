package testsupport

import (
	"path/filepath"
	"testing"

	"lingo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique state directory per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Backend.BaseURL = "http://127.0.0.1:0"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.SessionFile = filepath.Join(base, "state", "session.json")
	cfgVal.Paths.Database = filepath.Join(base, "state", "lingo.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackendURL points the test config at a (fake) backend.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithAPIKey sets the default API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.APIKey = key
	}
}

// WithPoll overrides the polling limits.
func WithPoll(intervalSeconds, maxAttempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Poll.IntervalSeconds = intervalSeconds
		b.cfg.Poll.MaxAttempts = maxAttempts
	}
}
