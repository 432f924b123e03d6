// Package logging assembles structured slog loggers for lingo.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with job IDs, CLI commands, and request
// correlation IDs. NewNop provides a silent logger for tests and wiring code
// that cannot fail.
package logging
