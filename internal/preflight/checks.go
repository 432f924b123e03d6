package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"lingo/internal/config"
	"lingo/internal/services/backend"
)

const (
	backendCheckName    = "Backend"
	apiKeyCheckName     = "API key"
	stateDirCheckName   = "State directory"
	configCheckName     = "Configuration"
	backendCheckTimeout = 5 * time.Second
	minFreeBytes        = 64 << 20
)

// CheckConfig re-validates the loaded configuration.
func CheckConfig(cfg *config.Config) Result {
	if err := cfg.Validate(); err != nil {
		return Result{Name: configCheckName, Detail: err.Error()}
	}
	return Result{Name: configCheckName, Passed: true, Detail: fmt.Sprintf("backend %s", cfg.Backend.BaseURL)}
}

// CheckBackend verifies that the health endpoint answers within five seconds.
func CheckBackend(ctx context.Context, client *backend.Client) Result {
	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	health, err := client.Health(checkCtx)
	if err != nil {
		return Result{Name: backendCheckName, Detail: summarizeError(err)}
	}
	if !health.OK() {
		status := health.Status
		if status == "" {
			status = "empty"
		}
		return Result{Name: backendCheckName, Detail: fmt.Sprintf("unhealthy (status %s)", status)}
	}
	return Result{Name: backendCheckName, Passed: true, Detail: fmt.Sprintf("%s reachable", client.BaseURL())}
}

// CheckAPIKey verifies the configured key by listing keys, a read-only call.
func CheckAPIKey(ctx context.Context, client *backend.Client, opts ...backend.CallOption) Result {
	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	keys, err := client.ListKeys(checkCtx, opts...)
	switch {
	case err == nil:
		return Result{Name: apiKeyCheckName, Passed: true, Detail: fmt.Sprintf("valid (%d keys visible)", len(keys))}
	case errors.Is(err, backend.ErrUnauthorized):
		return Result{Name: apiKeyCheckName, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: apiKeyCheckName, Detail: summarizeError(err)}
	}
}

// CheckStateDir verifies that the state directory is writable and has room
// for the session file and history database.
func CheckStateDir(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: stateDirCheckName, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: stateDirCheckName, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: stateDirCheckName, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: stateDirCheckName, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	probe, err := os.CreateTemp(path, ".lingo-probe-*")
	if err != nil {
		return Result{Name: stateDirCheckName, Detail: fmt.Sprintf("%s (error: write probe: %v)", path, err)}
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	free, err := freeBytes(path)
	if err != nil {
		return Result{Name: stateDirCheckName, Passed: true, Detail: fmt.Sprintf("%s (read/write ok, free space unknown)", path)}
	}
	if free < minFreeBytes {
		return Result{Name: stateDirCheckName, Detail: fmt.Sprintf("%s (error: only %d MiB free)", path, free>>20)}
	}
	return Result{Name: stateDirCheckName, Passed: true, Detail: fmt.Sprintf("%s (read/write ok, %d MiB free)", filepath.Clean(path), free>>20)}
}

func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// summarizeError produces a human-readable summary for backend check failures.
func summarizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "health check timed out (backend unresponsive)"
	case backend.IsTransport(err):
		return "unreachable (check that the backend is running and backend.base_url is correct)"
	case errors.Is(err, backend.ErrServer):
		return fmt.Sprintf("server error (%s)", err)
	default:
		return err.Error()
	}
}
