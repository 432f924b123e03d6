package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lingo/internal/catalog"
)

const fakeAPIKeyHeader = "X-API-Key"

// RecordedRequest captures what the fake backend received.
type RecordedRequest struct {
	Method      string
	Path        string
	APIKey      string
	HasAPIKey   bool
	ContentType string
	RequestID   string
}

type fakeKey struct {
	ID      string
	Name    string
	Scopes  []string
	Created time.Time
	Secret  string
}

type fakeJob struct {
	id         string
	kind       string
	targetLang string
	script     []string
	fetches    int
	failAt     int
	failStatus int
}

// FakeBackend is an in-memory translation backend served over httptest. When
// APIKey is non-empty, every endpoint except health requires it (or the
// secret of a key created through the API).
type FakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	apiKey    string
	keys      []fakeKey
	jobs      map[string]*fakeJob
	nextJob   int
	nextKey   int
	script    []string
	requests  []RecordedRequest
	immediate bool
}

// NewFakeBackend starts a fake backend guarded by apiKey and registers
// cleanup. Jobs default to the script PENDING, RUNNING, DONE.
func NewFakeBackend(t testing.TB, apiKey string) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		apiKey: apiKey,
		jobs:   make(map[string]*fakeJob),
		script: []string{"PENDING", "RUNNING", "DONE"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", f.handleHealth)
	mux.HandleFunc("POST /api/translate", f.auth(f.handleTranslate))
	mux.HandleFunc("POST /api/translate/audio", f.auth(f.handleUpload("audio")))
	mux.HandleFunc("POST /api/translate/video", f.auth(f.handleUpload("video")))
	mux.HandleFunc("POST /api/translate/video-url", f.auth(f.handleVideoURL))
	mux.HandleFunc("GET /api/jobs/{id}", f.auth(f.handleJob))
	mux.HandleFunc("GET /api/keys", f.auth(f.handleListKeys))
	mux.HandleFunc("POST /api/keys", f.auth(f.handleCreateKey))
	mux.HandleFunc("DELETE /api/keys/{id}", f.auth(f.handleDeleteKey))

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// SetScript sets the status sequence reported for jobs created afterwards.
// The last status repeats once the script is exhausted.
func (f *FakeBackend) SetScript(statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append([]string(nil), statuses...)
}

// SetImmediate makes uploads answer with result fields instead of a job.
func (f *FakeBackend) SetImmediate(immediate bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.immediate = immediate
}

// AddJob registers a job with its own status script.
func (f *FakeBackend) AddJob(id, targetLang string, statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[id] = &fakeJob{id: id, kind: "video", targetLang: targetLang, script: append([]string(nil), statuses...)}
}

// FailJobAt makes the n-th status fetch (1-based) of job id answer with the
// given HTTP status.
func (f *FakeBackend) FailJobAt(id string, n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.failAt = n
		job.failStatus = status
	}
}

// JobFetches returns how many status fetches job id has received.
func (f *FakeBackend) JobFetches(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		return job.fetches
	}
	return 0
}

// JobIDs lists known job ids.
func (f *FakeBackend) JobIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.jobs))
	for id := range f.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Requests returns a copy of every request received so far.
func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request.
func (f *FakeBackend) LastRequest() RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.Header.Values(fakeAPIKeyHeader)
		rec := RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			HasAPIKey:   len(values) > 0,
			ContentType: r.Header.Get("Content-Type"),
			RequestID:   r.Header.Get("X-Request-ID"),
		}
		if len(values) > 0 {
			rec.APIKey = values[0]
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r.Header.Get(fakeAPIKeyHeader)) {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid or missing API key"})
			return
		}
		next(w, r)
	}
}

func (f *FakeBackend) authorized(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.apiKey == "" {
		return true
	}
	if key == f.apiKey {
		return true
	}
	for _, k := range f.keys {
		if key != "" && key == k.Secret {
			return true
		}
	}
	return false
}

func (f *FakeBackend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeFakeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (f *FakeBackend) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text       string `json:"text"`
		SourceLang string `json:"source_lang"`
		TargetLang string `json:"target_lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid json"})
		return
	}
	source := body.SourceLang
	if source == "" || strings.EqualFold(source, "auto") {
		source = "en"
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"text":        body.Text,
		"source_lang": source,
		"target_lang": body.TargetLang,
		"translation": fmt.Sprintf("[%s] %s", body.TargetLang, body.Text),
	})
}

func (f *FakeBackend) handleUpload(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeFakeJSON(w, http.StatusBadRequest, map[string]any{"detail": "expected multipart form"})
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeFakeJSON(w, http.StatusBadRequest, map[string]any{"detail": "No file uploaded with field name 'file'"})
			return
		}
		file.Close()
		target := r.FormValue("target_lang")
		if target == "" {
			target = "hi"
		}
		f.mu.Lock()
		immediate := f.immediate
		f.mu.Unlock()
		if immediate {
			writeFakeJSON(w, http.StatusOK, map[string]any{
				"status":           "DONE",
				"target_lang":      target,
				"translation_text": "immediate " + kind,
			})
			return
		}
		job := f.newJob(kind, target)
		writeFakeJSON(w, http.StatusAccepted, map[string]any{
			"job_id":      job.id,
			"status":      "PENDING",
			"target_lang": target,
			"detail":      "Job queued. Poll /api/jobs/<job_id> for status/results.",
		})
	}
}

func (f *FakeBackend) handleVideoURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL        string `json:"url"`
		TargetLang string `json:"target_lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Missing 'url'"})
		return
	}
	if strings.EqualFold(body.TargetLang, catalog.BatchTarget) {
		ids := make([]string, 0, len(catalog.BatchCodes()))
		for _, code := range catalog.BatchCodes() {
			ids = append(ids, f.newJob("video", code).id)
		}
		writeFakeJSON(w, http.StatusAccepted, map[string]any{
			"job_ids": ids,
			"status":  "PENDING",
			"detail":  "Batch queued. Poll /api/jobs/<job_id> for each id.",
		})
		return
	}
	job := f.newJob("video", body.TargetLang)
	writeFakeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.id,
		"status":      "PENDING",
		"target_lang": job.targetLang,
		"detail":      "Job queued. Poll /api/jobs/<job_id> for status/results.",
	})
}

func (f *FakeBackend) newJob(kind, target string) *fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextJob++
	job := &fakeJob{
		id:         fmt.Sprintf("job-%d", f.nextJob),
		kind:       kind,
		targetLang: target,
		script:     append([]string(nil), f.script...),
	}
	f.jobs[job.id] = job
	return job
}

func (f *FakeBackend) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	job, ok := f.jobs[id]
	if !ok {
		f.mu.Unlock()
		writeFakeJSON(w, http.StatusNotFound, map[string]any{"detail": "job not found"})
		return
	}
	job.fetches++
	n := job.fetches
	if job.failAt > 0 && n == job.failAt {
		status := job.failStatus
		f.mu.Unlock()
		writeFakeJSON(w, status, map[string]any{"detail": fmt.Sprintf("status fetch %d failed", n)})
		return
	}
	status := "PENDING"
	if len(job.script) > 0 {
		status = job.script[min(n, len(job.script))-1]
	}
	payload := map[string]any{
		"job_id":           job.id,
		"status":           status,
		"target_lang":      job.targetLang,
		"error":            nil,
		"transcript_text":  nil,
		"translation_text": nil,
		"srt_url":          nil,
		"vtt_url":          nil,
		"dubbed_audio_url": nil,
		"dubbed_video_url": nil,
	}
	switch status {
	case "DONE":
		payload["transcript_text"] = "hello"
		payload["translation_text"] = "[" + job.targetLang + "] hello"
		payload["srt_url"] = f.Server.URL + "/media/jobs/" + job.id + "/out.srt"
		payload["vtt_url"] = f.Server.URL + "/media/jobs/" + job.id + "/out.vtt"
		if job.kind == "video" {
			payload["dubbed_video_url"] = f.Server.URL + "/media/jobs/" + job.id + "/dubbed.mp4"
		}
	case "ERROR":
		payload["error"] = "pipeline failed"
	}
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, payload)
}

func (f *FakeBackend) handleListKeys(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := make([]map[string]any, 0, len(f.keys))
	for i := len(f.keys) - 1; i >= 0; i-- {
		k := f.keys[i]
		items = append(items, map[string]any{
			"id":      k.ID,
			"name":    k.Name,
			"scopes":  k.Scopes,
			"created": k.Created,
			"status":  "ACTIVE",
		})
	}
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *FakeBackend) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string   `json:"name"`
		Scopes []string `json:"scopes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid json"})
		return
	}
	if body.Name == "" {
		body.Name = "Unnamed Key"
	}
	if body.Scopes == nil {
		body.Scopes = []string{}
	}
	f.mu.Lock()
	f.nextKey++
	key := fakeKey{
		ID:      fmt.Sprintf("00000000-0000-4000-8000-%012d", f.nextKey),
		Name:    body.Name,
		Scopes:  body.Scopes,
		Created: time.Now().UTC(),
		Secret:  fmt.Sprintf("lk_live_fake%012d", f.nextKey),
	}
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusCreated, map[string]any{
		"id":      key.ID,
		"name":    key.Name,
		"scopes":  key.Scopes,
		"created": key.Created,
		"status":  "ACTIVE",
		"key":     key.Secret,
	})
}

func (f *FakeBackend) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	for i, k := range f.keys {
		if k.ID == id {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	f.mu.Unlock()
	writeFakeJSON(w, http.StatusNotFound, map[string]any{"detail": "not found"})
}

func writeFakeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
