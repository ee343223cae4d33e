package view

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/algiz/internal/models"
)

// Cache keeps view listings in memory. Entries are dropped when the
// Materializer changes a view through the cache, or when Watch sees the
// view's directory change on disk.
type Cache struct {
	*Materializer

	mu     sync.Mutex
	slots  map[string][]models.Slot
	gens   map[string]uint64 // bumped by Invalidate
	epoch  uint64            // bumped by Reset
	hits   int
	misses int
}

// NewCache wraps m with a listing cache.
func NewCache(m *Materializer) *Cache {
	return &Cache{
		Materializer: m,
		slots:        make(map[string][]models.Slot),
		gens:         make(map[string]uint64),
	}
}

// List returns the cached listing of name, reading the directory on a miss.
func (c *Cache) List(ctx context.Context, name string) ([]models.Slot, error) {
	c.mu.Lock()
	if s, ok := c.slots[name]; ok {
		c.hits++
		c.mu.Unlock()
		return slices.Clone(s), nil
	}
	c.misses++
	gen, epoch := c.gens[name], c.epoch
	c.mu.Unlock()

	s, err := c.Materializer.List(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	// A listing read across an invalidation may already be stale.
	if c.gens[name] == gen && c.epoch == epoch {
		c.slots[name] = s
	}
	c.mu.Unlock()
	return slices.Clone(s), nil
}

// Invalidate drops the cached listing of name.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.slots, name)
	c.gens[name]++
	c.mu.Unlock()
}

// Reset drops every cached listing.
func (c *Cache) Reset() {
	c.mu.Lock()
	clear(c.slots)
	c.epoch++
	c.mu.Unlock()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) Append(ctx context.Context, name string, id int64) (int, error) {
	defer c.Invalidate(name)
	return c.Materializer.Append(ctx, name, id)
}

func (c *Cache) Replace(ctx context.Context, name string, ids []int64) error {
	defer c.Invalidate(name)
	return c.Materializer.Replace(ctx, name, ids)
}

func (c *Cache) Reflect(ctx context.Context, target, source string) (int, error) {
	defer c.Invalidate(target)
	return c.Materializer.Reflect(ctx, target, source)
}

func (c *Cache) Stash(ctx context.Context, name string) (string, error) {
	defer c.Invalidate(name)
	stash, err := c.Materializer.Stash(ctx, name)
	c.Invalidate(stash)
	return stash, err
}

func (c *Cache) Clear(name string) error {
	defer c.Invalidate(name)
	return c.Materializer.Clear(name)
}

func (c *Cache) Delete(name string) error {
	defer c.Invalidate(name)
	return c.Materializer.Delete(name)
}

// Watch invalidates cached listings as the views tree changes on disk, so
// edits made outside this process (a file manager, another CLI run) are
// picked up. It returns when ctx is cancelled.
func (c *Cache) Watch(ctx context.Context, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, c.root); err != nil {
		return err
	}
	logger.Info("view watcher: started", slog.String("root", c.root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("view watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(c.root, ev.Name)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			name, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
			if !nested {
				// A view directory itself was created, removed or renamed.
				if ev.Op&fsnotify.Create != 0 {
					if err := w.Add(ev.Name); err != nil {
						logger.Warn("view watcher: add dir failed",
							slog.String("path", ev.Name),
							slog.String("error", err.Error()))
					}
				}
				if name == countersFile {
					continue
				}
			}
			c.Invalidate(name)
			logger.Debug("view watcher: invalidated",
				slog.String("view", name),
				slog.String("op", ev.Op.String()))

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// Events may have been dropped; nothing cached can be trusted.
			c.Reset()
			logger.Error("view watcher: error", slog.String("error", werr.Error()))
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

var _ Store = (*Cache)(nil)
