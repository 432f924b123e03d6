package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"lingo/internal/fileutil"
)

const (
	filePerm       = 0o600
	dirPerm        = 0o700
	lockRetryDelay = 25 * time.Millisecond
	lockTimeout    = 5 * time.Second
)

// ErrLocked is returned when another process holds the session lock for
// longer than the lock timeout.
var ErrLocked = errors.New("session file is locked by another process")

// Record is the persisted session.
type Record struct {
	Email      string    `json:"email,omitempty"`
	APIKey     string    `json:"api_key,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at,omitzero"`
}

// LoggedIn reports whether the record represents an active session.
func (r Record) LoggedIn() bool {
	return strings.TrimSpace(r.Email) != ""
}

// MaskedKey returns the API key with all but its last four characters hidden.
func (r Record) MaskedKey() string {
	key := strings.TrimSpace(r.APIKey)
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

// Store reads and writes the session record.
type Store interface {
	Get() (Record, error)
	Set(Record) error
	Clear() error
}

// FileStore keeps the record in a JSON file guarded by path + ".lock".
type FileStore struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// NewFileStore returns a store for path. The file is created on first Set.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session path is required")
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock"), lockTimeout: lockTimeout}, nil
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored record, or an empty record when none exists.
func (s *FileStore) Get() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("read session: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Record{}, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session %s: %w", s.path, err)
	}
	return rec, nil
}

// Set replaces the stored record atomically.
func (s *FileStore) Set(rec Record) error {
	rec.Email = strings.TrimSpace(rec.Email)
	rec.APIKey = strings.TrimSpace(rec.APIKey)
	if rec.LoggedInAt.IsZero() {
		rec.LoggedInAt = time.Now().UTC()
	}
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.withLock(func() error {
		return fileutil.WriteAtomic(s.path, append(payload, '\n'), filePerm)
	})
}

// Clear removes the stored record. Clearing an absent session is not an error.
func (s *FileStore) Clear() error {
	return s.withLock(func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session: %w", err)
		}
		return nil
	})
}

func (s *FileStore) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() {
		_ = s.lock.Unlock()
	}()
	return fn()
}

// MemoryStore is an in-process Store, used when no session file is configured.
type MemoryStore struct {
	rec Record
}

func (m *MemoryStore) Get() (Record, error) { return m.rec, nil }

func (m *MemoryStore) Set(rec Record) error {
	m.rec = rec
	return nil
}

func (m *MemoryStore) Clear() error {
	m.rec = Record{}
	return nil
}
