// Package testutil provides shared test helpers for setting up archives.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/algiz/internal/archive"
)

// TestArchive opens an archive in a temporary directory.
func TestArchive(t *testing.T) *archive.Archive {
	t.Helper()
	a, err := archive.Open(archive.Options{
		Root:   t.TempDir(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// WriteFile creates a file with content in dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
