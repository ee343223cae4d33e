package view

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/blobstore"
	"github.com/starford/algiz/internal/models"
)

type fakeDocs map[int64]*models.Document

func (f fakeDocs) GetDocument(_ context.Context, id int64) (*models.Document, error) {
	d, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

func (f fakeDocs) DocumentIDsByHash(_ context.Context, hashes []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, d := range f {
		if slices.Contains(hashes, d.Hash) {
			out[d.Hash] = d.ID
		}
	}
	return out, nil
}

type env struct {
	root  string
	m     *Materializer
	blobs *blobstore.FS
	docs  fakeDocs
}

func testEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"blobs", "views"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	blobs, err := blobstore.NewFS(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatal(err)
	}
	docs := fakeDocs{}
	m, err := New(filepath.Join(root, "views"), blobs, docs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.EnsureReserved(); err != nil {
		t.Fatalf("EnsureReserved: %v", err)
	}
	return &env{root: root, m: m, blobs: blobs, docs: docs}
}

// add stores content as a blob and registers a document for it.
func (e *env) add(t *testing.T, id int64, content, ext string) *models.Document {
	t.Helper()
	hash, err := e.blobs.PutBytes([]byte(content))
	if err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	d := &models.Document{ID: id, Hash: hash, Name: content, Ext: ext}
	e.docs[id] = d
	return d
}

func documents(slots []models.Slot) []int64 {
	out := make([]int64, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Document)
	}
	return out
}

func TestAppendAndList(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	a := e.add(t, 1, "alpha", "txt")
	e.add(t, 2, "beta", "")

	for want, id := range []int64{1, 2, 1} {
		idx, err := e.m.Append(ctx, "main", id)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if idx != want {
			t.Errorf("index = %d, want %d", idx, want)
		}
	}

	slots, err := e.m.List(ctx, "main")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := documents(slots); !slices.Equal(got, []int64{1, 2, 1}) {
		t.Errorf("documents = %v", got)
	}

	file := filepath.Join(e.m.Root(), "main", "0~"+a.Hash+".txt")
	target, err := os.Readlink(file)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if want := filepath.Join("..", "..", "blobs", a.Hash); target != want {
		t.Errorf("target = %q, want %q", target, want)
	}
	data, err := os.ReadFile(file)
	if err != nil || string(data) != "alpha" {
		t.Errorf("read through link = %q, %v", data, err)
	}
}

func TestAppendUnknownDocument(t *testing.T) {
	e := testEnv(t)
	if _, err := e.m.Append(context.Background(), "main", 42); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListReportsMissingSlots(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	e.add(t, 1, "kept", "")
	gone := e.add(t, 2, "uncatalogued", "")
	noBlob := e.add(t, 3, "no blob", "")
	for _, id := range []int64{1, 2, 3} {
		if _, err := e.m.Append(ctx, "main", id); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	delete(e.docs, 2)
	blob, _ := e.blobs.Path(noBlob.Hash)
	if err := os.Remove(blob); err != nil {
		t.Fatal(err)
	}

	slots, err := e.m.List(ctx, "main")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("len = %d, want 3", len(slots))
	}
	if slots[0].Missing || slots[0].Document != 1 {
		t.Errorf("slot 0 = %+v", slots[0])
	}
	if !slots[1].Missing || slots[1].Hash != gone.Hash || slots[1].Reason != apperr.ErrInconsistentView.Error() {
		t.Errorf("slot 1 = %+v", slots[1])
	}
	if !slots[2].Missing || slots[2].Document != 0 {
		t.Errorf("slot 2 = %+v", slots[2])
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	e := testEnv(t)
	_ = os.WriteFile(filepath.Join(e.m.Root(), "main", "notes.txt"), []byte("x"), 0o644)
	slots, err := e.m.List(context.Background(), "main")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("slots = %+v", slots)
	}
}

func TestReflect(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	for i := int64(1); i <= 4; i++ {
		e.add(t, i, fmt.Sprintf("doc %d", i), "bin")
	}
	_, _ = e.m.Append(ctx, "main", 1)
	for _, id := range []int64{2, 3, 4} {
		_, _ = e.m.Append(ctx, "open", id)
	}
	delete(e.docs, 3)

	n, err := e.m.Reflect(ctx, "main", "open")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if n != 2 {
		t.Errorf("copied = %d, want 2", n)
	}
	slots, _ := e.m.List(ctx, "main")
	if got := documents(slots); !slices.Equal(got, []int64{1, 2, 4}) {
		t.Errorf("documents = %v", got)
	}
	for i, s := range slots {
		if s.Index != i {
			t.Errorf("slot %d has index %d", i, s.Index)
		}
	}
	// Source is left as it was.
	src, _ := e.m.List(ctx, "open")
	if len(src) != 3 {
		t.Errorf("source len = %d", len(src))
	}
}

func TestStash(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	e.add(t, 1, "one", "")
	e.add(t, 2, "two", "")
	_, _ = e.m.Append(ctx, "in", 1)
	_, _ = e.m.Append(ctx, "in", 2)

	stash, err := e.m.Stash(ctx, "in")
	if err != nil {
		t.Fatalf("Stash: %v", err)
	}
	if stash != "stash1" {
		t.Errorf("stash = %q", stash)
	}
	src, _ := e.m.List(ctx, "in")
	if len(src) != 0 {
		t.Errorf("source still has %d slots", len(src))
	}
	dst, _ := e.m.List(ctx, stash)
	if got := documents(dst); !slices.Equal(got, []int64{1, 2}) {
		t.Errorf("stash documents = %v", got)
	}
}

func TestGenerateNeverReusesNumbers(t *testing.T) {
	e := testEnv(t)
	first, err := e.m.Generate(KindQuery)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, _ := e.m.Generate(KindQuery)
	if first != "query1" || second != "query2" {
		t.Fatalf("names = %s, %s", first, second)
	}
	if err := e.m.Delete(second); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	third, _ := e.m.Generate(KindQuery)
	if third != "query3" {
		t.Errorf("after delete = %s, want query3", third)
	}

	// A hand-made directory with a larger suffix moves the counter forward.
	if err := e.m.Create("query10"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	next, _ := e.m.Generate(KindQuery)
	if next != "query11" {
		t.Errorf("next = %s, want query11", next)
	}
	if user, _ := e.m.Generate(KindUser); user != "user1" {
		t.Errorf("user = %s", user)
	}
	if _, err := e.m.Generate(KindMain); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("generate main err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	d := e.add(t, 1, "content", "")
	if err := e.m.Create("scratch"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, _ = e.m.Append(ctx, "scratch", 1)

	if err := e.m.Delete("scratch"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e.m.Exists("scratch") {
		t.Error("view still exists")
	}
	if ok, _ := e.blobs.Has(d.Hash); !ok {
		t.Error("delete removed the blob")
	}
	if err := e.m.Delete("main"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("delete reserved err = %v", err)
	}
	if err := e.m.Delete("scratch"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
}

func TestReplace(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		e.add(t, i, fmt.Sprint(i), "")
	}
	if err := e.m.Replace(ctx, "picks", []int64{3, 1}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := e.m.Replace(ctx, "picks", []int64{2}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	slots, _ := e.m.List(ctx, "picks")
	if got := documents(slots); !slices.Equal(got, []int64{2}) {
		t.Errorf("documents = %v", got)
	}
	if slots[0].Index != 0 {
		t.Errorf("index = %d, want 0", slots[0].Index)
	}
}

func TestCreateValidatesName(t *testing.T) {
	e := testEnv(t)
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := e.m.Create(name); err == nil {
			t.Errorf("Create(%q) succeeded", name)
		}
	}
	if err := e.m.Create("main"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("Create(main) err = %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"main":    KindMain,
		"in":      KindInbox,
		"open":    KindOpen,
		"user3":   KindUser,
		"query12": KindQuery,
		"stash1":  KindStash,
		"stash01": KindUser,
		"reading": KindUser,
		"query":   KindUser,
	}
	for name, want := range tests {
		if got := KindOf(name); got != want {
			t.Errorf("KindOf(%q) = %q, want %q", name, got, want)
		}
	}
}
