package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec, err := store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.LoggedIn() {
		t.Fatalf("expected empty record, got %+v", rec)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on missing session: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	when := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := store.Set(Record{Email: " ops@example.com ", APIKey: "lk_live_abcdef", LoggedInAt: when}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePerm {
		t.Fatalf("session perms = %o, want %o", perm, filePerm)
	}

	rec, err := store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !rec.LoggedIn() || rec.Email != "ops@example.com" || !rec.LoggedInAt.Equal(when) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.MaskedKey() != "********cdef" {
		t.Fatalf("masked key = %q", rec.MaskedKey())
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected session file removed, got %v", err)
	}
}

func TestFileStoreSetStampsLoginTime(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	before := time.Now().UTC().Add(-time.Second)
	if err := store.Set(Record{Email: "a@b.c"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rec, _ := store.Get()
	if rec.LoggedInAt.Before(before) {
		t.Fatalf("login time not stamped: %v", rec.LoggedInAt)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store, _ := NewFileStore(path)
	if _, err := store.Get(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := NewFileStore(path)
			if err != nil {
				t.Error(err)
				return
			}
			if err := store.Set(Record{Email: "user@example.com", APIKey: "key"}); err != nil {
				t.Errorf("Set: %v", err)
			}
		}()
	}
	wg.Wait()

	store, _ := NewFileStore(path)
	rec, err := store.Get()
	if err != nil {
		t.Fatalf("Get after concurrent writes: %v", err)
	}
	if rec.Email != "user@example.com" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestFileStoreReportsHeldLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	holder := flock.New(path + ".lock")
	if ok, err := holder.TryLock(); err != nil || !ok {
		t.Fatalf("hold lock: %v %v", ok, err)
	}
	defer holder.Unlock()

	store, _ := NewFileStore(path)
	store.lockTimeout = 100 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- store.Clear() }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Clear did not give up on a held lock")
	}
}

func TestMemoryStore(t *testing.T) {
	var store Store = &MemoryStore{}
	if err := store.Set(Record{Email: "x@y.z"}); err != nil {
		t.Fatal(err)
	}
	rec, _ := store.Get()
	if !rec.LoggedIn() {
		t.Fatal("expected logged in")
	}
	_ = store.Clear()
	rec, _ = store.Get()
	if rec.LoggedIn() {
		t.Fatal("expected cleared")
	}
}
