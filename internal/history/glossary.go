package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is applied to glossary terms added without one.
const DefaultCategory = "general"

// Term is a glossary entry with its preferred translation per language code.
type Term struct {
	ID           string
	Term         string
	Category     string
	Translations map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Languages returns the translated language codes in sorted order.
func (t Term) Languages() []string {
	langs := make([]string, 0, len(t.Translations))
	for lang := range t.Translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// AddTerm creates a glossary entry. Terms are unique case-insensitively.
func (s *Store) AddTerm(ctx context.Context, term, category string, translations map[string]string) (Term, error) {
	ctx = ensureContext(ctx)
	term = strings.TrimSpace(term)
	if term == "" {
		return Term{}, fmt.Errorf("%w: term is required", ErrInvalid)
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = DefaultCategory
	}
	now := nowUTC()
	rec := Term{
		ID:           uuid.NewString(),
		Term:         term,
		Category:     category,
		Translations: map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM glossary_terms WHERE term = ?", term).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateTerm, term)
		}
		stamp := formatTime(now)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO glossary_terms (id, term, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			rec.ID, rec.Term, rec.Category, stamp, stamp,
		); err != nil {
			return err
		}
		for lang, value := range translations {
			lang = normalizeLang(lang)
			value = strings.TrimSpace(value)
			if lang == "" || value == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO glossary_translations (term_id, lang, value) VALUES (?, ?, ?)",
				rec.ID, lang, value,
			); err != nil {
				return err
			}
			rec.Translations[lang] = value
		}
		return tx.Commit()
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateTerm) {
			return Term{}, err
		}
		return Term{}, fmt.Errorf("add term %q: %w", term, err)
	}
	return rec, nil
}

// SetTranslation sets or, when value is blank, removes the translation of a
// term into lang.
func (s *Store) SetTranslation(ctx context.Context, termID, lang, value string) error {
	ctx = ensureContext(ctx)
	lang = normalizeLang(lang)
	if lang == "" {
		return fmt.Errorf("%w: language is required", ErrInvalid)
	}
	value = strings.TrimSpace(value)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, "UPDATE glossary_terms SET updated_at = ? WHERE id = ?", formatTime(nowUTC()), termID)
		if err != nil {
			return fmt.Errorf("touch term: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("term %s: %w", termID, ErrNotFound)
		}
		if value == "" {
			_, err = tx.ExecContext(ctx, "DELETE FROM glossary_translations WHERE term_id = ? AND lang = ?", termID, lang)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO glossary_translations (term_id, lang, value) VALUES (?, ?, ?)
                ON CONFLICT (term_id, lang) DO UPDATE SET value = excluded.value`,
				termID, lang, value,
			)
		}
		if err != nil {
			return fmt.Errorf("set translation: %w", err)
		}
		return tx.Commit()
	})
}

// GetTerm returns one glossary entry.
func (s *Store) GetTerm(ctx context.Context, termID string) (Term, error) {
	terms, err := s.queryTerms(ctx, "WHERE id = ?", termID)
	if err != nil {
		return Term{}, err
	}
	if len(terms) == 0 {
		return Term{}, fmt.Errorf("term %s: %w", termID, ErrNotFound)
	}
	return terms[0], nil
}

// ListTerms returns entries ordered by term. A non-empty query matches the
// term, its category or any translation, case-insensitively.
func (s *Store) ListTerms(ctx context.Context, query string) ([]Term, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.queryTerms(ctx, "")
	}
	pattern := "%" + escapeLike(query) + "%"
	return s.queryTerms(ctx,
		`WHERE term LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\'
        OR id IN (SELECT term_id FROM glossary_translations WHERE value LIKE ? ESCAPE '\')`,
		pattern, pattern, pattern,
	)
}

func (s *Store) queryTerms(ctx context.Context, where string, args ...any) ([]Term, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, term, category, created_at, updated_at FROM glossary_terms "+where+" ORDER BY term COLLATE NOCASE",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query terms: %w", err)
	}
	var terms []Term
	index := map[string]int{}
	for rows.Next() {
		var (
			t                Term
			created, updated string
		)
		if err := rows.Scan(&t.ID, &t.Term, &t.Category, &created, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan term: %w", err)
		}
		t.CreatedAt = parseTime(created)
		t.UpdatedAt = parseTime(updated)
		t.Translations = map[string]string{}
		index[t.ID] = len(terms)
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(terms) == 0 {
		return terms, nil
	}

	// Translations are loaded after the term cursor is closed; the store runs
	// on a single connection.
	trows, err := s.db.QueryContext(ctx, "SELECT term_id, lang, value FROM glossary_translations")
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var termID, lang, value string
		if err := trows.Scan(&termID, &lang, &value); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		if i, ok := index[termID]; ok {
			terms[i].Translations[lang] = value
		}
	}
	return terms, trows.Err()
}

// DeleteTerm removes a glossary entry and its translations.
func (s *Store) DeleteTerm(ctx context.Context, termID string) error {
	res, err := s.exec(ctx, "DELETE FROM glossary_terms WHERE id = ?", strings.TrimSpace(termID))
	if err != nil {
		return fmt.Errorf("delete term %s: %w", termID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("term %s: %w", termID, ErrNotFound)
	}
	return nil
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

