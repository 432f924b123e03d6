package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteMedia creates a fake media file of the requested size under dir and
// returns its path. The content is a repeating byte pattern; a size <= 0
// writes a single byte.
func WriteMedia(t testing.TB, dir, name string, size int) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
