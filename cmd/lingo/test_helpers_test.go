package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lingo/internal/config"
	"lingo/internal/testsupport"
)

const testAPIKey = "root-key"

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.FakeBackend
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{
		"LINGO_BACKEND_URL", "LINGO_API_KEY", "LINGO_REQUEST_TIMEOUT", "LINGO_POLL_INTERVAL",
		"LINGO_POLL_MAX_ATTEMPTS", "LINGO_STATE_DIR", "LINGO_LOG_LEVEL", "LINGO_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	fake := testsupport.NewFakeBackend(t, testAPIKey)
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{
		testsupport.WithBackendURL(fake.URL()),
		testsupport.WithAPIKey(testAPIKey),
	}, opts...)...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(homeDir, ".config", "lingo", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    fake,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
