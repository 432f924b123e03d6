package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	pathHealth         = "/api/health"
	pathTranslate      = "/api/translate"
	pathTranslateAudio = "/api/translate/audio"
	pathTranslateVideo = "/api/translate/video"
	pathTranslateURL   = "/api/translate/video-url"
	pathJobs           = "/api/jobs/"
	pathKeys           = "/api/keys"
)

// Health queries the health endpoint. The configured key is still attached
// when present; the endpoint accepts anonymous calls.
func (c *Client) Health(ctx context.Context, opts ...CallOption) (Health, error) {
	result, err := c.Do(ctx, Request{Method: http.MethodGet, Path: pathHealth}, opts...)
	if err != nil {
		return Health{}, err
	}
	var health Health
	if err := result.Decode(&health); err != nil {
		return Health{}, err
	}
	return health, nil
}

// Translate submits text for synchronous translation. An empty source
// language means auto-detection.
func (c *Client) Translate(ctx context.Context, req TextRequest, opts ...CallOption) (Translation, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Translation{}, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.TargetLang) == "" {
		return Translation{}, fmt.Errorf("%w: target language is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.SourceLang) == "" {
		req.SourceLang = AutoDetect
	}
	result, err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathTranslate, JSON: req}, opts...)
	if err != nil {
		return Translation{}, err
	}
	var out Translation
	if err := result.Decode(&out); err != nil {
		return Translation{}, err
	}
	return out, nil
}

// TranslateAudio uploads an audio file.
func (c *Client) TranslateAudio(ctx context.Context, file FileUpload, targetLang string, opts ...CallOption) (Submission, error) {
	return c.submitFile(ctx, pathTranslateAudio, file, targetLang, opts)
}

// TranslateVideo uploads a video file.
func (c *Client) TranslateVideo(ctx context.Context, file FileUpload, targetLang string, opts ...CallOption) (Submission, error) {
	return c.submitFile(ctx, pathTranslateVideo, file, targetLang, opts)
}

// TranslateVideoURL asks the backend to fetch and translate a remote video.
func (c *Client) TranslateVideoURL(ctx context.Context, videoURL, targetLang string, opts ...CallOption) (Submission, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return Submission{}, fmt.Errorf("%w: video url is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(targetLang) == "" {
		return Submission{}, fmt.Errorf("%w: target language is required", ErrInvalidRequest)
	}
	body := videoURLRequest{URL: videoURL, TargetLang: targetLang}
	result, err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathTranslateURL, JSON: body}, opts...)
	if err != nil {
		return Submission{}, err
	}
	return decodeSubmission(result)
}

func (c *Client) submitFile(ctx context.Context, path string, file FileUpload, targetLang string, opts []CallOption) (Submission, error) {
	if file.Content == nil {
		return Submission{}, fmt.Errorf("%w: file is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(targetLang) == "" {
		return Submission{}, fmt.Errorf("%w: target language is required", ErrInvalidRequest)
	}
	form := NewMultipart().Field("target_lang", targetLang).File("file", file)
	result, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Form: form}, opts...)
	if err != nil {
		return Submission{}, err
	}
	return decodeSubmission(result)
}

func decodeSubmission(result Result) (Submission, error) {
	var sub Submission
	if err := result.Decode(&sub); err != nil {
		return Submission{}, err
	}
	sub.Raw = result.Body
	return sub, nil
}

// JobStatus fetches the current status of a job. It has no side effects and
// may be retried freely.
func (c *Client) JobStatus(ctx context.Context, jobID string, opts ...CallOption) (JobStatus, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return JobStatus{}, fmt.Errorf("%w: job id is required", ErrInvalidRequest)
	}
	result, err := c.Do(ctx, Request{Method: http.MethodGet, Path: pathJobs + url.PathEscape(jobID)}, opts...)
	if err != nil {
		return JobStatus{}, err
	}
	var status JobStatus
	if err := result.Decode(&status); err != nil {
		return JobStatus{}, err
	}
	if status.JobID == "" {
		status.JobID = jobID
	}
	status.Raw = result.Body
	return status, nil
}

// ListKeys returns key metadata, newest first as ordered by the backend.
func (c *Client) ListKeys(ctx context.Context, opts ...CallOption) ([]APIKey, error) {
	result, err := c.Do(ctx, Request{Method: http.MethodGet, Path: pathKeys}, opts...)
	if err != nil {
		return nil, err
	}
	var list keyList
	if err := result.Decode(&list); err != nil {
		return nil, err
	}
	if list.Items == nil {
		return []APIKey{}, nil
	}
	return list.Items, nil
}

// CreateKey creates a key. The returned secret is shown by the backend only
// once and must not be persisted by callers.
func (c *Client) CreateKey(ctx context.Context, name string, scopes []string, opts ...CallOption) (CreatedKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CreatedKey{}, fmt.Errorf("%w: key name is required", ErrInvalidRequest)
	}
	if scopes == nil {
		scopes = []string{}
	}
	body := keyCreateRequest{Name: name, Scopes: scopes}
	result, err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathKeys, JSON: body}, opts...)
	if err != nil {
		return CreatedKey{}, err
	}
	var created CreatedKey
	if err := result.Decode(&created); err != nil {
		return CreatedKey{}, err
	}
	return created, nil
}

// DeleteKey removes a key. Any 2xx, including 204, is success; deleting an id
// the backend does not know returns an error matching ErrNotFound.
func (c *Client) DeleteKey(ctx context.Context, keyID string, opts ...CallOption) error {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return fmt.Errorf("%w: key id is required", ErrInvalidRequest)
	}
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: pathKeys + "/" + url.PathEscape(keyID)}, opts...)
	if err != nil {
		return fmt.Errorf("delete key %s: %w", keyID, err)
	}
	return nil
}
