package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"lingo/internal/logging"
	"lingo/internal/services"
)

const (
	// APIKeyHeader carries the API key on authenticated requests.
	APIKeyHeader = "X-API-Key"
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	defaultHTTPTimeout = 60 * time.Second
	defaultUserAgent   = "lingo-cli"
	maxErrorBodyBytes  = 64 << 10
)

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against the translation backend.
type Client struct {
	baseURL    string
	defaultKey string
	userAgent  string
	httpClient HTTPDoer
	logger     *slog.Logger
	requestID  func(context.Context) string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger; requests are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithRequestIDFunc overrides how correlation ids are generated.
func WithRequestIDFunc(fn func(context.Context) string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client. It has no effect
// when combined with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.httpClient.(*http.Client); ok && timeout > 0 {
			hc.Timeout = timeout
		}
	}
}

// New constructs a client for baseURL. defaultKey may be empty, in which case
// requests carry no API key unless a call supplies one with WithAPIKey.
func New(baseURL, defaultKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: base url %q must be an absolute http(s) url", ErrInvalidRequest, baseURL)
	}
	client := &Client{
		baseURL:    baseURL,
		defaultKey: strings.TrimSpace(defaultKey),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewNop(),
		requestID:  defaultRequestID,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func defaultRequestID(ctx context.Context) string {
	if id, ok := services.RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// CallOption adjusts a single request.
type CallOption func(*callSettings)

type callSettings struct {
	apiKey      string
	hasOverride bool
	anonymous   bool
}

// WithAPIKey overrides the configured default key for one call. A blank key
// leaves the default in place.
func WithAPIKey(key string) CallOption {
	return func(s *callSettings) {
		if key = strings.TrimSpace(key); key != "" {
			s.apiKey = key
			s.hasOverride = true
		}
	}
}

// WithoutAPIKey sends the request with no API key header at all.
func WithoutAPIKey() CallOption {
	return func(s *callSettings) {
		s.anonymous = true
	}
}

func (c *Client) effectiveKey(opts []CallOption) string {
	var settings callSettings
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	switch {
	case settings.anonymous:
		return ""
	case settings.hasOverride:
		return settings.apiKey
	default:
		return c.defaultKey
	}
}

// Request describes one backend call. JSON and Form are mutually exclusive.
type Request struct {
	Method string
	Path   string
	JSON   any
	Form   *Multipart
}

// Result is the normalized body of a successful response.
type Result struct {
	StatusCode int
	// Body is the raw JSON payload, nil when the response carried none.
	Body json.RawMessage
}

// Empty reports whether the response carried no JSON payload.
func (r Result) Empty() bool {
	return len(r.Body) == 0
}

// Decode unmarshals the payload into v. An empty result leaves v untouched.
func (r Result) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do performs req and normalizes the outcome.
func (c *Client) Do(ctx context.Context, req Request, opts ...CallOption) (Result, error) {
	if req.JSON != nil && req.Form != nil {
		return Result{}, fmt.Errorf("%w: json body and multipart form are mutually exclusive", ErrInvalidRequest)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")

	var (
		body          io.Reader
		contentLength int64
		contentType   string
	)
	switch {
	case req.JSON != nil:
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return Result{}, fmt.Errorf("encode %s request: %w", req.Path, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case req.Form != nil:
		reader, length, formType, err := req.Form.encode()
		if err != nil {
			return Result{}, err
		}
		body = reader
		contentLength = length
		contentType = formType
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("build %s request: %w", req.Path, err)
	}
	if contentLength > 0 {
		httpReq.ContentLength = contentLength
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if key := c.effectiveKey(opts); key != "" {
		httpReq.Header.Set(APIKeyHeader, key)
	}
	requestID := c.requestID(ctx)
	if requestID != "" {
		httpReq.Header.Set(RequestIDHeader, requestID)
	}

	logger := logging.WithContext(ctx, c.logger)
	if _, ok := services.RequestIDFromContext(ctx); !ok && requestID != "" {
		logger = logger.With(logging.String(logging.FieldCorrelationID, requestID))
	}
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%s %s: %w", method, req.Path, ctxErr)
		}
		logger.Debug("backend request failed",
			logging.String("method", method),
			logging.String("path", req.Path),
			logging.Error(err),
		)
		return Result{}, &TransportError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("backend request",
		logging.String("method", method),
		logging.String("path", req.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return Result{}, &HTTPError{
			Method:     method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, raw),
			Body:       raw,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%s %s: %w", method, req.Path, ctxErr)
		}
		return Result{}, &TransportError{Method: method, URL: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	result := Result{StatusCode: resp.StatusCode}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return result, nil
	}
	if !json.Valid(trimmed) {
		logger.Warn("backend returned non-JSON success body; treating as empty",
			logging.String("path", req.Path),
			logging.Int("status", resp.StatusCode),
			logging.String(logging.FieldEventType, "malformed_success_body"),
			logging.String(logging.FieldErrorHint, "verify the backend base url points at the API, not a web frontend"),
		)
		return result, nil
	}
	result.Body = json.RawMessage(trimmed)
	return result, nil
}
