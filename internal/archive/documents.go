package archive

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/algiz/internal/models"
)

// DocumentDetail is a document with its tags and sources.
type DocumentDetail struct {
	models.Document
	Tags    []string `json:"tags"`
	Sources []string `json:"sources"`
	Path    string   `json:"path"`
}

// Document returns one document with tags spelled as canonical paths.
func (a *Archive) Document(ctx context.Context, id int64) (*DocumentDetail, error) {
	d, err := a.db.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	tagIDs, err := a.db.DocumentTags(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	g, err := a.graph(ctx)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(tagIDs))
	for _, tid := range tagIDs {
		t, err := a.db.GetTag(ctx, tid)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		tags = append(tags, g.Path(t.Taxonym))
	}
	slices.Sort(tags)
	sources, err := a.db.Sources(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if sources == nil {
		sources = []string{}
	}
	path, err := a.blobs.Path(d.Hash)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &DocumentDetail{Document: *d, Tags: tags, Sources: sources, Path: path}, nil
}

// SetComment replaces a document's comment.
func (a *Archive) SetComment(ctx context.Context, id int64, comment string) error {
	if err := a.db.SetComment(ctx, id, comment); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Remove soft-deletes documents. Their blobs and view slots stay.
func (a *Archive) Remove(ctx context.Context, ids ...int64) error {
	return a.setDeleted(ctx, true, ids)
}

// Restore reverses Remove.
func (a *Archive) Restore(ctx context.Context, ids ...int64) error {
	return a.setDeleted(ctx, false, ids)
}

func (a *Archive) setDeleted(ctx context.Context, deleted bool, ids []int64) error {
	for _, id := range ids {
		if err := a.db.SetDeleted(ctx, id, deleted); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}

// Orphans lists blobs that no catalog row refers to, typically left by an
// interrupted ingest. They are reported, never removed.
func (a *Archive) Orphans(ctx context.Context) ([]string, error) {
	stored, err := a.blobs.List()
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	known, err := a.db.AllHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	var out []string
	for _, h := range stored {
		if _, ok := known[h]; !ok {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out, nil
}
