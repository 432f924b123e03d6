// Package config loads, normalizes, and validates lingo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a working-directory .env file, and
// honours LINGO_* environment overrides such as LINGO_BACKEND_URL and
// LINGO_API_KEY. The Config type is the process-wide endpoint configuration:
// it is resolved once at startup and treated as read-only afterwards.
//
// Always obtain settings through this package so the API client, job poller,
// and CLI receive a trimmed base URL, positive poll limits, and clear
// validation errors.
package config
