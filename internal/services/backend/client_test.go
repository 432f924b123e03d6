package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"lingo/internal/services"
	"lingo/internal/testsupport"
)

func newTestClient(t *testing.T, baseURL, key string, opts ...Option) *Client {
	t.Helper()
	client, err := New(baseURL, key, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://example.com", "/api"} {
		if _, err := New(raw, ""); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("New(%q) error = %v, want ErrInvalidRequest", raw, err)
		}
	}
	client := newTestClient(t, " http://example.com/ ", "")
	if client.BaseURL() != "http://example.com" {
		t.Fatalf("base url not normalized: %q", client.BaseURL())
	}
}

func TestAPIKeyHeaderRules(t *testing.T) {
	tests := []struct {
		name       string
		defaultKey string
		opts       []CallOption
		wantKey    string
		wantHeader bool
	}{
		{name: "no key anywhere", wantHeader: false},
		{name: "blank default", defaultKey: "   ", wantHeader: false},
		{name: "default key", defaultKey: "default-key", wantKey: "default-key", wantHeader: true},
		{name: "override wins", defaultKey: "default-key", opts: []CallOption{WithAPIKey("override-key")}, wantKey: "override-key", wantHeader: true},
		{name: "override without default", opts: []CallOption{WithAPIKey("override-key")}, wantKey: "override-key", wantHeader: true},
		{name: "blank override keeps default", defaultKey: "default-key", opts: []CallOption{WithAPIKey("")}, wantKey: "default-key", wantHeader: true},
		{name: "anonymous", defaultKey: "default-key", opts: []CallOption{WithoutAPIKey()}, wantHeader: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				values  []string
				present bool
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				values = r.Header.Values(APIKeyHeader)
				_, present = r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, tt.defaultKey)
			if _, err := client.Do(context.Background(), Request{Path: "/api/keys"}, tt.opts...); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if present != tt.wantHeader {
				t.Fatalf("header present = %v, want %v (values %q)", present, tt.wantHeader, values)
			}
			if tt.wantHeader && (len(values) != 1 || values[0] != tt.wantKey) {
				t.Fatalf("header values = %q, want %q", values, tt.wantKey)
			}
		})
	}
}

func TestDoSetsStandardHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", WithUserAgent("lingo-test/1"))
	ctx := services.WithRequestID(context.Background(), "req-123")
	if _, err := client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/translate", JSON: map[string]string{"text": "hi"}}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got.Get("Content-Type") != "application/json" {
		t.Fatalf("content type = %q", got.Get("Content-Type"))
	}
	if got.Get("Accept") != "application/json" {
		t.Fatalf("accept = %q", got.Get("Accept"))
	}
	if got.Get("User-Agent") != "lingo-test/1" {
		t.Fatalf("user agent = %q", got.Get("User-Agent"))
	}
	if got.Get(RequestIDHeader) != "req-123" {
		t.Fatalf("request id = %q", got.Get(RequestIDHeader))
	}

	if _, err := client.Do(context.Background(), Request{Path: "/api/health"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got.Get("Content-Type") != "" {
		t.Fatalf("bodiless request must not set a content type, got %q", got.Get("Content-Type"))
	}
	if got.Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}

func TestDoReturnsJSONBodyUnchanged(t *testing.T) {
	const payload = `{"status":"DONE","nested":{"urls":["a","b"],"n":1.5},"extra":null}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload+"\n")
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL, "").Do(context.Background(), Request{Path: "/api/jobs/x"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result.Empty() {
		t.Fatal("expected non-empty result")
	}
	var want, got any
	if err := json.Unmarshal([]byte(payload), &want); err != nil {
		t.Fatal(err)
	}
	if err := result.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch: %#v vs %#v", want, got)
	}
	if !bytes.Equal(result.Body, []byte(payload)) {
		t.Fatalf("raw body = %s", result.Body)
	}
}

func TestDoEmptySuccessBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "ok empty", status: http.StatusOK},
		{name: "ok whitespace", status: http.StatusOK, body: " \n"},
		{name: "ok non-json", status: http.StatusOK, body: "<html>ok</html>"},
		{name: "accepted empty", status: http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			result, err := newTestClient(t, server.URL, "").Do(context.Background(), Request{Method: http.MethodDelete, Path: "/api/keys/1"})
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !result.Empty() {
				t.Fatalf("expected empty marker, got %s", result.Body)
			}
			if result.StatusCode != tt.status {
				t.Fatalf("status = %d", result.StatusCode)
			}
			var target map[string]any
			if err := result.Decode(&target); err != nil || target != nil {
				t.Fatalf("decode of empty result = %v, %v", target, err)
			}
		})
	}
}

func TestDoErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		sentinel error
	}{
		{name: "detail", status: http.StatusBadRequest, body: `{"detail":"Missing 'url'"}`, want: "Missing 'url'"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail":"Invalid or missing API key"}`, want: "Invalid or missing API key", sentinel: ErrUnauthorized},
		{name: "message field", status: http.StatusConflict, body: `{"message":"already exists"}`, want: "already exists"},
		{name: "not found", status: http.StatusNotFound, body: `{"detail":"not found"}`, want: "not found", sentinel: ErrNotFound},
		{name: "html body", status: http.StatusBadGateway, body: "<html>bad gateway</html>", want: "HTTP 502", sentinel: ErrServer},
		{name: "empty body", status: http.StatusInternalServerError, want: "HTTP 500", sentinel: ErrServer},
		{name: "non-string detail", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":"text"}]}`, want: "HTTP 422"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, want: "HTTP 429", sentinel: ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			result, err := newTestClient(t, server.URL, "k").Do(context.Background(), Request{Path: "/api/keys"})
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			if err.Error() != tt.want {
				t.Fatalf("message = %q, want %q", err.Error(), tt.want)
			}
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) || httpErr.StatusCode != tt.status {
				t.Fatalf("expected *HTTPError with status %d, got %#v", tt.status, err)
			}
			if StatusCode(err) != tt.status {
				t.Fatalf("StatusCode = %d", StatusCode(err))
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected errors.Is(%v)", tt.sentinel)
			}
			if IsTransport(err) {
				t.Fatal("HTTP errors must not be classified as transport errors")
			}
			if !result.Empty() {
				t.Fatal("failed call must not return a result")
			}
		})
	}
}

func TestDoTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url, "").Do(context.Background(), Request{Path: "/api/health"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "backend unreachable") {
		t.Fatalf("transport error should advise checking reachability: %v", err)
	}
	if StatusCode(err) != 0 {
		t.Fatalf("transport errors carry no status, got %d", StatusCode(err))
	}
}

func TestDoCancelledContextIsNotTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, server.URL, "").Do(ctx, Request{Path: "/api/health"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsTransport(err) {
		t.Fatal("cancellation must not be reported as a transport failure")
	}
}

func TestDoRejectsJSONAndForm(t *testing.T) {
	client := newTestClient(t, "http://example.invalid", "")
	_, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/x", JSON: map[string]string{}, Form: NewMultipart()})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestHealthAgainstFakeBackend(t *testing.T) {
	fake := testsupport.NewFakeBackend(t, "secret")
	health, err := newTestClient(t, fake.URL(), "").Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !health.OK() {
		t.Fatalf("unexpected health %+v", health)
	}
	if fake.LastRequest().HasAPIKey {
		t.Fatal("no key configured, header must be absent")
	}
}
