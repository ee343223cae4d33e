// Package view materializes ordered document lists as directories of
// symlinks into the content store. The filesystem is the only record of a
// view; nothing here writes to the catalog.
package view

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/blobstore"
	"github.com/starford/algiz/internal/checksum"
	"github.com/starford/algiz/internal/models"
)

// Documents is the read-only catalog access a view needs.
type Documents interface {
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	DocumentIDsByHash(ctx context.Context, hashes []string) (map[string]int64, error)
}

// Store is the set of view operations shared by Materializer and Cache.
type Store interface {
	Create(name string) error
	Exists(name string) bool
	Names() ([]string, error)
	Generate(k Kind) (string, error)
	List(ctx context.Context, name string) ([]models.Slot, error)
	Append(ctx context.Context, name string, id int64) (int, error)
	Replace(ctx context.Context, name string, ids []int64) error
	Reflect(ctx context.Context, target, source string) (int, error)
	Stash(ctx context.Context, name string) (string, error)
	Clear(name string) error
	Delete(name string) error
}

// Materializer reads and writes views below one directory.
type Materializer struct {
	root  string
	blobs blobstore.Provider
	docs  Documents
}

// New returns a Materializer for the views directory root, which must exist.
func New(root string, blobs blobstore.Provider, docs Documents) (*Materializer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("view: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("view: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("view: root is not a directory: %s", abs)
	}
	return &Materializer{root: abs, blobs: blobs, docs: docs}, nil
}

// Root returns the absolute views directory.
func (m *Materializer) Root() string {
	return m.root
}

func (m *Materializer) dir(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(m.root, name), nil
}

// EnsureReserved creates the fixed views if they are absent.
func (m *Materializer) EnsureReserved() error {
	for _, name := range Reserved {
		if m.Exists(name) {
			continue
		}
		if err := m.Create(name); err != nil {
			return err
		}
	}
	return nil
}

// Create makes an empty view.
func (m *Materializer) Create(name string) error {
	dir, err := m.dir(name)
	if err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("view: %s: %w", name, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("view: create %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a view directory called name exists.
func (m *Materializer) Exists(name string) bool {
	dir, err := m.dir(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Names lists every view, sorted.
func (m *Materializer) Names() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("view: list views: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && NamePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// entry is one parsed slot file name.
type entry struct {
	index int
	hash  string
	ext   string
	file  string
}

// parseEntry splits "{index}~{hash}[.{ext}]".
func parseEntry(file string) (entry, bool) {
	idx, rest, ok := strings.Cut(file, "~")
	if !ok {
		return entry{}, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return entry{}, false
	}
	hash, ext, _ := strings.Cut(rest, ".")
	if !checksum.Valid(hash) {
		return entry{}, false
	}
	return entry{index: n, hash: hash, ext: ext, file: file}, true
}

func entryName(index int, hash, ext string) string {
	return strconv.Itoa(index) + "~" + models.BlobFileName(hash, ext)
}

// entries returns the slot files of a view in index order.
func (m *Materializer) entries(name string) ([]entry, error) {
	dir, err := m.dir(name)
	if err != nil {
		return nil, err
	}
	files, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("view: %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("view: read %s: %w", name, err)
	}
	var out []entry
	for _, f := range files {
		if e, ok := parseEntry(f.Name()); ok {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b entry) int { return a.index - b.index })
	return out, nil
}

func nextIndex(es []entry) int {
	if len(es) == 0 {
		return 0
	}
	return es[len(es)-1].index + 1
}

// link writes one slot pointing at the blob for hash. The target is
// relative so the archive directory can be moved as a whole.
func (m *Materializer) link(name string, index int, hash, ext string) error {
	dir := filepath.Join(m.root, name)
	blob, err := m.blobs.Path(hash)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	target, err := filepath.Rel(dir, blob)
	if err != nil {
		return fmt.Errorf("view: link target: %w", err)
	}
	if err := os.Symlink(target, filepath.Join(dir, entryName(index, hash, ext))); err != nil {
		return fmt.Errorf("view: link %s/%d: %w", name, index, err)
	}
	return nil
}

// List reports the slots of a view in index order. A slot whose hash has no
// catalog row or no blob is returned with Missing set; such slots never fail
// the listing.
func (m *Materializer) List(ctx context.Context, name string) ([]models.Slot, error) {
	es, err := m.entries(name)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(es))
	for i, e := range es {
		hashes[i] = e.hash
	}
	ids, err := m.docs.DocumentIDsByHash(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("view: resolve %s: %w", name, err)
	}
	slots := make([]models.Slot, len(es))
	for i, e := range es {
		s := models.Slot{Index: e.index, Hash: e.hash, Ext: e.ext}
		id, known := ids[e.hash]
		switch has, err := m.blobs.Has(e.hash); {
		case err != nil:
			return nil, fmt.Errorf("view: check blob: %w", err)
		case !known:
			s.Missing = true
			s.Reason = apperr.ErrInconsistentView.Error()
		case !has:
			s.Missing = true
			s.Reason = "blob missing"
		default:
			s.Document = id
		}
		slots[i] = s
	}
	return slots, nil
}

// Append adds document id at the end of a view and returns its index.
func (m *Materializer) Append(ctx context.Context, name string, id int64) (int, error) {
	d, err := m.docs.GetDocument(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("view: append to %s: %w", name, err)
	}
	es, err := m.entries(name)
	if err != nil {
		return 0, err
	}
	idx := nextIndex(es)
	if err := m.link(name, idx, d.Hash, d.Ext); err != nil {
		return 0, err
	}
	return idx, nil
}

// Replace makes a view hold exactly ids, in order, creating it if needed.
func (m *Materializer) Replace(ctx context.Context, name string, ids []int64) error {
	if !m.Exists(name) {
		if err := m.Create(name); err != nil {
			return err
		}
	} else if err := m.Clear(name); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := m.Append(ctx, name, id); err != nil {
			return err
		}
	}
	return nil
}

// Reflect appends the present slots of source onto target in order and
// returns how many were copied.
func (m *Materializer) Reflect(ctx context.Context, target, source string) (int, error) {
	slots, err := m.List(ctx, source)
	if err != nil {
		return 0, err
	}
	es, err := m.entries(target)
	if err != nil {
		return 0, err
	}
	idx := nextIndex(es)
	n := 0
	for _, s := range slots {
		if s.Missing {
			continue
		}
		if err := m.link(target, idx, s.Hash, s.Ext); err != nil {
			return n, err
		}
		idx++
		n++
	}
	return n, nil
}

// Stash moves the contents of name into a new stash view and returns its name.
func (m *Materializer) Stash(ctx context.Context, name string) (string, error) {
	if !m.Exists(name) {
		return "", fmt.Errorf("view: %s: %w", name, apperr.ErrNotFound)
	}
	stash, err := m.Generate(KindStash)
	if err != nil {
		return "", err
	}
	if _, err := m.Reflect(ctx, stash, name); err != nil {
		return "", err
	}
	if err := m.Clear(name); err != nil {
		return "", err
	}
	return stash, nil
}

// Clear removes every slot of a view. Blobs are untouched.
func (m *Materializer) Clear(name string) error {
	es, err := m.entries(name)
	if err != nil {
		return err
	}
	dir := filepath.Join(m.root, name)
	for _, e := range es {
		if err := os.Remove(filepath.Join(dir, e.file)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("view: clear %s: %w", name, err)
		}
	}
	return nil
}

// Delete clears a view and removes its directory. Reserved views can only
// be cleared.
func (m *Materializer) Delete(name string) error {
	if IsReserved(name) {
		return fmt.Errorf("view: %s is reserved: %w", name, apperr.ErrConflict)
	}
	if err := m.Clear(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(m.root, name)); err != nil {
		return fmt.Errorf("view: delete %s: %w", name, err)
	}
	return nil
}

var _ Store = (*Materializer)(nil)
