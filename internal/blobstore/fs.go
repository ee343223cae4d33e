package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/checksum"
)

// FS implements Provider with one file per hash in a single directory.
type FS struct {
	root string // absolute path to the blob directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blobstore: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blobstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blobstore: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute blob directory.
func (f *FS) Root() string {
	return f.root
}

// Path maps a hash to its file, rejecting anything that is not a digest
// so no caller-supplied string can escape the root.
func (f *FS) Path(hash string) (string, error) {
	if !checksum.Valid(hash) {
		return "", fmt.Errorf("blobstore: invalid hash %q", hash)
	}
	return filepath.Join(f.root, hash), nil
}

// Put writes r under hash unless a blob already exists there.
// Content is spooled to a temporary file in the root and verified against
// hash before it is renamed into place.
func (f *FS) Put(hash string, r io.Reader) error {
	abs, err := f.Path(hash)
	if err != nil {
		return err
	}
	if ok, err := f.Has(hash); err != nil {
		return err
	} else if ok {
		return nil
	}

	tmp, err := os.CreateTemp(f.root, ".put-*")
	if err != nil {
		return fmt.Errorf("blobstore: write %s: %w", hash, err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	_, err = io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("blobstore: write %s: %w", hash, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != hash {
		return fmt.Errorf("blobstore: content hashes to %s, want %s: %w", got, hash, apperr.ErrConflict)
	}
	if err := atomic.ReplaceFile(tmp.Name(), abs); err != nil {
		return fmt.Errorf("blobstore: publish %s: %w", hash, err)
	}
	// Blobs are immutable once written.
	if err := os.Chmod(abs, 0o444); err != nil {
		return fmt.Errorf("blobstore: chmod %s: %w", hash, err)
	}
	return nil
}

// PutBytes stores data and returns its hash.
func (f *FS) PutBytes(data []byte) (string, error) {
	hash := checksum.Sum(data)
	if err := f.Put(hash, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return hash, nil
}

// Has reports whether a blob exists for hash.
func (f *FS) Has(hash string) (bool, error) {
	abs, err := f.Path(hash)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("blobstore: stat %s: %w", hash, err)
	}
}

// Open returns a reader for the blob stored under hash.
func (f *FS) Open(hash string) (io.ReadCloser, error) {
	abs, err := f.Path(hash)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blobstore: open %s: %w", hash, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("blobstore: open %s: %w", hash, err)
	}
	return fh, nil
}

// List returns every stored hash. Temporary files left by an interrupted
// write are skipped.
func (f *FS) List() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("blobstore: list: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !checksum.Valid(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Verify compile-time interface satisfaction.
var _ Provider = (*FS)(nil)
