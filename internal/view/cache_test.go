package view

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestCacheServesRepeatedLists(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	e.add(t, 1, "one", "")
	c := NewCache(e.m)

	for range 3 {
		if _, err := c.List(ctx, "main"); err != nil {
			t.Fatalf("List: %v", err)
		}
	}
	if hits, misses := c.Stats(); hits != 2 || misses != 1 {
		t.Errorf("hits = %d, misses = %d", hits, misses)
	}

	if _, err := c.Append(ctx, "main", 1); err != nil {
		t.Fatalf("Append: %v", err)
	}
	slots, _ := c.List(ctx, "main")
	if len(slots) != 1 {
		t.Errorf("stale listing after Append: %+v", slots)
	}
}

func TestCacheStashInvalidatesBoth(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	e.add(t, 1, "one", "")
	c := NewCache(e.m)
	_, _ = c.Append(ctx, "in", 1)
	_, _ = c.List(ctx, "in")

	stash, err := c.Stash(ctx, "in")
	if err != nil {
		t.Fatalf("Stash: %v", err)
	}
	if src, _ := c.List(ctx, "in"); len(src) != 0 {
		t.Errorf("source = %+v", src)
	}
	if dst, _ := c.List(ctx, stash); len(dst) != 1 {
		t.Errorf("stash = %+v", dst)
	}
}

func TestCacheWatchSeesExternalEdits(t *testing.T) {
	e := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := e.add(t, 1, "one", "txt")
	c := NewCache(e.m)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	go c.Watch(ctx, logger)
	time.Sleep(100 * time.Millisecond)

	if slots, _ := c.List(ctx, "open"); len(slots) != 0 {
		t.Fatalf("precondition: open not empty")
	}

	// Link a slot by hand, the way a user might from a shell.
	link := filepath.Join(e.m.Root(), "open", "0~"+d.FileName())
	if err := os.Symlink(filepath.Join("..", "..", "blobs", d.Hash), link); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		slots, _ := c.List(ctx, "open")
		return len(slots) == 1
	}, "watcher did not invalidate the open view")
}

// hookDocs runs during once, in the middle of a directory listing.
type hookDocs struct {
	fakeDocs
	during func()
}

func (h *hookDocs) DocumentIDsByHash(ctx context.Context, hashes []string) (map[string]int64, error) {
	if f := h.during; f != nil {
		h.during = nil
		f()
	}
	return h.fakeDocs.DocumentIDsByHash(ctx, hashes)
}

func TestCacheDropsListingReadAcrossInvalidate(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	e.add(t, 1, "one", "")
	e.add(t, 2, "two", "")
	if _, err := e.m.Append(ctx, "main", 1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	hook := &hookDocs{fakeDocs: e.docs}
	m, err := New(e.m.Root(), e.blobs, hook)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := NewCache(m)
	hook.during = func() {
		if _, err := e.m.Append(ctx, "main", 2); err != nil {
			t.Errorf("Append: %v", err)
		}
		c.Invalidate("main")
	}

	if _, err := c.List(ctx, "main"); err != nil {
		t.Fatalf("List: %v", err)
	}
	slots, err := c.List(ctx, "main")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(slots) != 2 {
		t.Errorf("stale listing kept after invalidation: %+v", slots)
	}
	if _, misses := c.Stats(); misses != 2 {
		t.Errorf("misses = %d, want 2", misses)
	}
}
