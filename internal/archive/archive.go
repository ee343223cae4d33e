// Package archive ties the content store, the catalog and the views of one
// archive directory together. It owns the ordering rules between the
// filesystem and the catalog.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/algiz/internal/blobstore"
	"github.com/starford/algiz/internal/catalog"
	"github.com/starford/algiz/internal/taxonomy"
	"github.com/starford/algiz/internal/view"
)

// Layout names below the archive root.
const (
	BlobsDir    = "blobs"
	ViewsDir    = "views"
	CatalogFile = "catalog.db"
)

// Options configures Open.
type Options struct {
	// Root is the archive directory. It is created if missing.
	Root string
	// CatalogPath overrides {Root}/catalog.db.
	CatalogPath string
	// Watch serves view listings from a cache kept fresh by a filesystem
	// watcher. Run the watcher with Archive.Watch.
	Watch  bool
	Logger *slog.Logger
}

// Archive is one opened archive directory.
type Archive struct {
	root   string
	blobs  *blobstore.FS
	db     *catalog.DB
	views  view.Store
	cache  *view.Cache
	logger *slog.Logger
}

// Open creates the archive layout if needed and opens its catalog.
func Open(opts Options) (*Archive, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("archive: root is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("archive: resolve root: %w", err)
	}
	for _, dir := range []string{root, filepath.Join(root, BlobsDir), filepath.Join(root, ViewsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: create %s: %w", dir, err)
		}
	}

	blobs, err := blobstore.NewFS(filepath.Join(root, BlobsDir))
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	dsn := opts.CatalogPath
	if dsn == "" {
		dsn = filepath.Join(root, CatalogFile)
	}
	db, err := catalog.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	m, err := view.New(filepath.Join(root, ViewsDir), blobs, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}
	if err := m.EnsureReserved(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}

	a := &Archive{root: root, blobs: blobs, db: db, views: m, logger: logger}
	if opts.Watch {
		a.cache = view.NewCache(m)
		a.views = a.cache
	}
	logger.Debug("archive opened",
		slog.String("root", root),
		slog.String("catalog", dsn),
		slog.Bool("watch", opts.Watch))
	return a, nil
}

// Close releases the catalog.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Root returns the absolute archive directory.
func (a *Archive) Root() string {
	return a.root
}

// Views returns the view store of the archive.
func (a *Archive) Views() view.Store {
	return a.views
}

// Catalog exposes the catalog for read paths that need no archive rules.
func (a *Archive) Catalog() catalog.Catalog {
	return a.db
}

// Blobs exposes the content store.
func (a *Archive) Blobs() blobstore.Provider {
	return a.blobs
}

// Watch keeps the view cache fresh until ctx is cancelled. It returns
// immediately when the archive was opened without Watch.
func (a *Archive) Watch(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Watch(ctx, a.logger)
}

// graph loads the current taxonomy snapshot.
func (a *Archive) graph(ctx context.Context) (*taxonomy.Graph, error) {
	nodes, err := a.db.LoadTaxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: load taxonomy: %w", err)
	}
	return taxonomy.NewGraph(nodes), nil
}
