package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrUnknownScope is returned for scope ids outside the catalog.
	ErrUnknownScope = errors.New("unknown scope")
	// ErrNoScopes is returned when a key would be created without scopes.
	ErrNoScopes = errors.New("at least one scope is required")
)

// Scope is a permission unit attachable to an API key.
type Scope struct {
	ID          string
	Label       string
	Description string
}

// DefaultScope is preselected when creating keys.
const DefaultScope = "translate_text"

var scopes = []Scope{
	{ID: "translate_text", Label: "Translate Text", Description: "Translate text content"},
	{ID: "translate_audio", Label: "Translate Audio", Description: "Translate audio content"},
	{ID: "translate_video", Label: "Translate Video", Description: "Translate video content"},
	{ID: "document_translate_analyze", Label: "Translate/Analyze Document", Description: "Translate and summarize/analyze documents"},
}

// Scopes returns the scope table.
func Scopes() []Scope {
	out := make([]Scope, len(scopes))
	copy(out, scopes)
	return out
}

// LookupScope finds a scope by id, case-insensitively.
func LookupScope(id string) (Scope, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, s := range scopes {
		if s.ID == id {
			return s, true
		}
	}
	return Scope{}, false
}

// ScopeLabel returns the label for id. Scopes the backend knows but this
// table does not are title-cased from their id.
func ScopeLabel(id string) string {
	if s, ok := LookupScope(id); ok {
		return s.Label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(id), "_", " "))
}

// ValidateScopes normalizes ids (trimmed, lower-cased, de-duplicated in input
// order) and rejects empty sets and unknown ids.
func ValidateScopes(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, raw := range ids {
		for _, part := range strings.Split(raw, ",") {
			id := strings.ToLower(strings.TrimSpace(part))
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, ok := LookupScope(id); !ok {
				unknown = append(unknown, id)
				continue
			}
			out = append(out, id)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, strings.Join(unknown, ", "))
	}
	if len(out) == 0 {
		return nil, ErrNoScopes
	}
	return out, nil
}
