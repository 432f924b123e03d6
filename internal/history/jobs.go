package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Job kinds recorded in the ledger.
const (
	KindAudio    = "audio"
	KindVideo    = "video"
	KindVideoURL = "video_url"
)

// JobRecord is the ledger row for one submitted job.
type JobRecord struct {
	JobID      string
	Kind       string
	TargetLang string
	// Source is the uploaded file name or the remote URL.
	Source    string
	Status    string
	Result    json.RawMessage
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordSubmission inserts a job accepted by the backend. Re-recording an id
// refreshes its status and leaves the original submission time intact.
func (s *Store) RecordSubmission(ctx context.Context, rec JobRecord) error {
	rec.JobID = strings.TrimSpace(rec.JobID)
	if rec.JobID == "" {
		return fmt.Errorf("%w: job id is required", ErrInvalid)
	}
	if strings.TrimSpace(rec.Kind) == "" {
		return fmt.Errorf("%w: job kind is required", ErrInvalid)
	}
	if rec.Status == "" {
		rec.Status = "PENDING"
	}
	stamp := formatTime(nowUTC())
	_, err := s.exec(ctx,
		`INSERT INTO jobs (job_id, kind, target_lang, source, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (job_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		rec.JobID, rec.Kind, rec.TargetLang, rec.Source, rec.Status, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", rec.JobID, err)
	}
	return nil
}

// UpdateStatus stores the latest observed status of a job. Jobs that were
// not submitted from this machine return ErrNotFound.
func (s *Store) UpdateStatus(ctx context.Context, jobID, status string, result json.RawMessage, errMsg string) error {
	var resultValue any
	if len(result) > 0 {
		resultValue = string(result)
	}
	res, err := s.exec(ctx,
		`UPDATE jobs SET status = ?, result_json = COALESCE(?, result_json), error_message = ?, updated_at = ?
        WHERE job_id = ?`,
		status, resultValue, errMsg, formatTime(nowUTC()), strings.TrimSpace(jobID),
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return nil
}

const jobColumns = `job_id, kind, target_lang, source, status, result_json, error_message, created_at, updated_at`

func scanJob(scanner interface{ Scan(...any) error }) (JobRecord, error) {
	var (
		rec              JobRecord
		result           sql.NullString
		created, updated string
	)
	if err := scanner.Scan(&rec.JobID, &rec.Kind, &rec.TargetLang, &rec.Source, &rec.Status, &result, &rec.Error, &created, &updated); err != nil {
		return JobRecord{}, err
	}
	if result.Valid && result.String != "" {
		rec.Result = json.RawMessage(result.String)
	}
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)
	return rec, nil
}

// GetJob returns one ledger row.
func (s *Store) GetJob(ctx context.Context, jobID string) (JobRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+jobColumns+" FROM jobs WHERE job_id = ?", strings.TrimSpace(jobID))
	rec, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return JobRecord{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return rec, nil
}

// ListJobs returns the most recent submissions first. A limit <= 0 returns
// every row.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	query := "SELECT " + jobColumns + " FROM jobs ORDER BY created_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
