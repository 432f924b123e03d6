package preflight

import (
	"context"
	"strings"

	"lingo/internal/config"
	"lingo/internal/services/backend"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. opts
// carry a per-invocation key override. The API key check is skipped (and
// reported as such) when neither a configured key nor an override exists.
func RunAll(ctx context.Context, cfg *config.Config, opts ...backend.CallOption) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckConfig(cfg))

	client, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey,
		backend.WithUserAgent(cfg.Backend.UserAgent),
		backend.WithTimeout(backendCheckTimeout),
	)
	if err != nil {
		results = append(results, Result{Name: backendCheckName, Detail: err.Error()})
	} else {
		results = append(results, CheckBackend(ctx, client))
		if strings.TrimSpace(cfg.Backend.APIKey) == "" && len(opts) == 0 {
			results = append(results, Result{Name: apiKeyCheckName, Passed: true, Detail: "no default key configured (pass --key per command)"})
		} else {
			results = append(results, CheckAPIKey(ctx, client, opts...))
		}
	}

	results = append(results, CheckStateDir(cfg.Paths.StateDir))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
