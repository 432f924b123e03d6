package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Job status values reported by the backend. The set is owned by the server;
// only StatusDone and StatusError are terminal.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusError   = "ERROR"
)

// AutoDetect asks the backend to detect the source language.
const AutoDetect = "auto"

// IsTerminal reports whether status ends a job's lifecycle.
func IsTerminal(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusDone, StatusError:
		return true
	}
	return false
}

// Health is the payload of the health endpoint.
type Health struct {
	Status string `json:"status"`
}

// OK reports whether the backend described itself as healthy.
func (h Health) OK() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "ok")
}

// TextRequest is the body of a text translation.
type TextRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Translation is the result of a text translation.
type Translation struct {
	Text        string `json:"text,omitempty"`
	SourceLang  string `json:"source_lang,omitempty"`
	TargetLang  string `json:"target_lang,omitempty"`
	Translation string `json:"translation"`
}

// Submission is the response to an audio, video or URL submission. The
// backend either queues work (JobID, or JobIDs for a batch target) or answers
// immediately, in which case Raw holds the result fields.
type Submission struct {
	JobID      string          `json:"job_id,omitempty"`
	JobIDs     []string        `json:"job_ids,omitempty"`
	Status     string          `json:"status,omitempty"`
	TargetLang string          `json:"target_lang,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Async reports whether the submission queued one or more jobs.
func (s Submission) Async() bool {
	return len(s.IDs()) > 0
}

// IDs returns every job id carried by the submission.
func (s Submission) IDs() []string {
	ids := make([]string, 0, len(s.JobIDs)+1)
	if id := strings.TrimSpace(s.JobID); id != "" {
		ids = append(ids, id)
	}
	for _, id := range s.JobIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Result decodes an immediate answer into the job status shape.
func (s Submission) Result() (JobStatus, error) {
	status := JobStatus{Raw: s.Raw}
	if err := (Result{Body: s.Raw}).Decode(&status); err != nil {
		return JobStatus{}, err
	}
	status.Raw = s.Raw
	return status, nil
}

// JobStatus is a snapshot of a server-side job. Raw preserves the full payload
// since the backend may add result fields.
type JobStatus struct {
	JobID           string          `json:"job_id"`
	Status          string          `json:"status"`
	TargetLang      string          `json:"target_lang,omitempty"`
	Error           string          `json:"error,omitempty"`
	TranscriptText  string          `json:"transcript_text,omitempty"`
	TranslationText string          `json:"translation_text,omitempty"`
	SRTURL          string          `json:"srt_url,omitempty"`
	VTTURL          string          `json:"vtt_url,omitempty"`
	DubbedAudioURL  string          `json:"dubbed_audio_url,omitempty"`
	DubbedVideoURL  string          `json:"dubbed_video_url,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// Terminal reports whether the snapshot ends the job.
func (j JobStatus) Terminal() bool {
	return IsTerminal(j.Status)
}

// Failed reports whether the server marked the job as failed.
func (j JobStatus) Failed() bool {
	return strings.EqualFold(strings.TrimSpace(j.Status), StatusError)
}

// Outputs lists the non-empty artifact URLs keyed by kind.
func (j JobStatus) Outputs() map[string]string {
	out := make(map[string]string, 4)
	for kind, url := range map[string]string{
		"srt":          j.SRTURL,
		"vtt":          j.VTTURL,
		"dubbed_audio": j.DubbedAudioURL,
		"dubbed_video": j.DubbedVideoURL,
	} {
		if strings.TrimSpace(url) != "" {
			out[kind] = url
		}
	}
	return out
}

// Key statuses.
const (
	KeyActive  = "ACTIVE"
	KeyRevoked = "REVOKED"
)

// APIKey is key metadata as listed by the backend. It never carries the
// secret.
type APIKey struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Scopes  []string  `json:"scopes"`
	Created Timestamp `json:"created"`
	Status  string    `json:"status"`
}

// Timestamp decodes the backend's ISO-8601 times. Values without a zone are
// taken as UTC; null and "" decode to the zero time.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised time %q", raw)
}

// CreatedKey is the response to key creation; Secret is only ever returned
// here.
type CreatedKey struct {
	APIKey
	Secret string `json:"key"`
}

type keyList struct {
	Items []APIKey `json:"items"`
}

type keyCreateRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type videoURLRequest struct {
	URL        string `json:"url"`
	TargetLang string `json:"target_lang"`
}
