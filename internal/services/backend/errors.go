package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited matches 429 responses.
	ErrRateLimited = errors.New("rate limited")
	// ErrServer matches 5xx responses.
	ErrServer = errors.New("server error")
	// ErrInvalidRequest is returned before any network call when arguments are unusable.
	ErrInvalidRequest = errors.New("invalid request")
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server-provided detail, or "HTTP <code>" when the body
	// carried none.
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is maps status codes onto the package sentinels so callers can use errors.Is.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// TransportError wraps failures where no HTTP response was received
// (connection refused, DNS, TLS, timeouts).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v (backend unreachable: check that it is running and that the base URL is correct)", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a network-level failure rather than an
// HTTP error status.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// *HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

var messageFields = []string{"detail", "message", "error"}

// errorMessage extracts the human-readable message from a JSON error body,
// falling back to "HTTP <code>".
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	if len(body) == 0 {
		return fallback
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	for _, field := range messageFields {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return fallback
}
