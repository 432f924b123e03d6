package history

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Feedback categories.
const (
	FeedbackResults = "results"
	FeedbackBug     = "bug"
	FeedbackFeature = "feature"
	FeedbackOther   = "other"
)

// FeedbackCategories lists accepted categories; the first is the default.
var FeedbackCategories = []string{FeedbackResults, FeedbackBug, FeedbackFeature, FeedbackOther}

// Feedback is an operator note about translation quality or the tool.
type Feedback struct {
	ID        string
	Category  string
	Body      string
	Email     string
	CreatedAt time.Time
}

// AddFeedback stores a note. An empty category defaults to results; the
// email is optional but must parse when given.
func (s *Store) AddFeedback(ctx context.Context, category, body, email string) (Feedback, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = FeedbackResults
	}
	if !slices.Contains(FeedbackCategories, category) {
		return Feedback{}, fmt.Errorf("%w: feedback category %q (want one of %s)", ErrInvalid, category, strings.Join(FeedbackCategories, ", "))
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Feedback{}, fmt.Errorf("%w: feedback text is required", ErrInvalid)
	}
	email = strings.TrimSpace(email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return Feedback{}, fmt.Errorf("%w: email %q: %v", ErrInvalid, email, err)
		}
		email = addr.Address
	}
	fb := Feedback{
		ID:        uuid.NewString(),
		Category:  category,
		Body:      body,
		Email:     email,
		CreatedAt: nowUTC(),
	}
	if _, err := s.exec(ctx,
		"INSERT INTO feedback (id, category, body, email, created_at) VALUES (?, ?, ?, ?, ?)",
		fb.ID, fb.Category, fb.Body, fb.Email, formatTime(fb.CreatedAt),
	); err != nil {
		return Feedback{}, fmt.Errorf("add feedback: %w", err)
	}
	return fb, nil
}

// ListFeedback returns notes newest first. A limit <= 0 returns every row.
func (s *Store) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	query := "SELECT id, category, body, email, created_at FROM feedback ORDER BY created_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		var (
			fb      Feedback
			created string
		)
		if err := rows.Scan(&fb.ID, &fb.Category, &fb.Body, &fb.Email, &created); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.CreatedAt = parseTime(created)
		out = append(out, fb)
	}
	return out, rows.Err()
}
