package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	commandKey   contextKey = "command"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the backend job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the backend job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCommand annotates context with the CLI command path (e.g. "keys create").
func WithCommand(ctx context.Context, command string) context.Context {
	if command == "" {
		return ctx
	}
	return context.WithValue(ctx, commandKey, command)
}

// CommandFromContext returns the CLI command path if present.
func CommandFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(commandKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier. The backend
// client forwards it as X-Request-ID instead of minting a new one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
