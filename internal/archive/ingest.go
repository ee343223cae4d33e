package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/checksum"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/view"
)

// Ingest copies the file at path into the archive, catalogues it and
// appends it to the inbox view. Content that is already archived fails with
// apperr.ErrDuplicateContent before anything is copied.
func (a *Archive) Ingest(ctx context.Context, path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("archive: resolve %s: %w", path, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("archive: ingest: %w", err)
	}
	defer f.Close()

	hash, size, err := checksum.SumReader(f)
	if err != nil {
		return nil, fmt.Errorf("archive: hash %s: %w", path, err)
	}
	if err := a.rejectDuplicate(ctx, hash, path); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: rewind %s: %w", path, err)
	}
	return a.store(ctx, filepath.Base(abs), abs, hash, size, f)
}

// IngestReader archives the bytes of r under the file name name. The stream
// is spooled to a temporary file so it can be hashed before it is stored.
func (a *Archive) IngestReader(ctx context.Context, name string, r io.Reader) (*models.Document, error) {
	tmp, err := os.CreateTemp(a.root, ".ingest-*")
	if err != nil {
		return nil, fmt.Errorf("archive: spool: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hash, size, err := checksum.SumReader(io.TeeReader(r, tmp))
	if err != nil {
		return nil, fmt.Errorf("archive: spool %s: %w", name, err)
	}
	if err := a.rejectDuplicate(ctx, hash, name); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: rewind spool: %w", err)
	}
	return a.store(ctx, filepath.Base(name), "", hash, size, tmp)
}

func (a *Archive) rejectDuplicate(ctx context.Context, hash, name string) error {
	exists, err := a.db.ExistsDocument(ctx, hash)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if exists {
		return fmt.Errorf("archive: %s (%s): %w", name, hash, apperr.ErrDuplicateContent)
	}
	return nil
}

// store writes the blob first and the catalog row second, so an interrupted
// ingest leaves at worst an orphan blob (see Orphans).
func (a *Archive) store(ctx context.Context, base, source, hash string, size int64, r io.Reader) (*models.Document, error) {
	if err := a.blobs.Put(hash, r); err != nil {
		return nil, fmt.Errorf("archive: store blob: %w", err)
	}

	name, ext := splitName(base)
	d := &models.Document{
		Hash:      hash,
		Name:      name,
		Ext:       ext,
		Size:      size,
		MediaType: mediaType(ext),
	}
	if _, err := a.db.InsertDocument(ctx, d); err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if source != "" {
		if err := a.db.AddSource(ctx, d.ID, source); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}
	if _, err := a.views.Append(ctx, string(view.KindInbox), d.ID); err != nil {
		return nil, fmt.Errorf("archive: append to inbox: %w", err)
	}
	a.logger.Debug("ingested",
		slog.Int64("id", d.ID),
		slog.String("hash", hash),
		slog.String("name", base),
		slog.Int64("size", size))
	return d, nil
}

// IngestAll ingests every path, skipping duplicates. Failures other than
// duplicates are logged and counted; the first one is returned at the end.
func (a *Archive) IngestAll(ctx context.Context, paths []string) ([]*models.Document, int, error) {
	var (
		docs     []*models.Document
		skipped  int
		firstErr error
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return docs, skipped, err
		}
		d, err := a.Ingest(ctx, p)
		switch {
		case errors.Is(err, apperr.ErrDuplicateContent):
			skipped++
			a.logger.Info("duplicate skipped", slog.String("path", p))
		case err != nil:
			a.logger.Warn("ingest failed", slog.String("path", p), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		default:
			docs = append(docs, d)
		}
	}
	return docs, skipped, firstErr
}

// splitName separates a file name into stem and lowercase extension.
// A leading dot is part of the stem.
func splitName(base string) (string, string) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		return base, ""
	}
	return stem, strings.ToLower(strings.TrimPrefix(ext, "."))
}

func mediaType(ext string) string {
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension("." + ext)
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
