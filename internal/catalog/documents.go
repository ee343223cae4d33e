package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

const documentColumns = `id, hash, name, ext, size, media_type, comment, deleted, created_at, updated_at`

// hashLookupBatch bounds the number of bound parameters per IN query.
const hashLookupBatch = 500

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*models.Document, error) {
	var (
		d       models.Document
		comment sql.NullString
		deleted int
	)
	if err := s.Scan(&d.ID, &d.Hash, &d.Name, &d.Ext, &d.Size, &d.MediaType,
		&comment, &deleted, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Comment = comment.String
	d.Deleted = deleted != 0
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertDocument writes a new document row and returns its identifier.
// A hash that is already catalogued fails with apperr.ErrDuplicateContent.
func (db *DB) InsertDocument(ctx context.Context, d *models.Document) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, fmt.Errorf("catalog: invalid document: %w", err)
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO documents (hash, name, ext, size, media_type, comment, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, d.Hash, d.Name, d.Ext, d.Size, d.MediaType, nullString(d.Comment), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if mapped := mapConstraint(err); errors.Is(mapped, apperr.ErrAlreadyExists) {
			return 0, fmt.Errorf("catalog: insert document %s: %w", d.Hash, apperr.ErrDuplicateContent)
		}
		return 0, fmt.Errorf("catalog: insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("catalog: insert document id: %w", err)
	}
	d.ID = id
	return id, nil
}

// ExistsDocument reports whether a document with the given content hash is catalogued.
func (db *DB) ExistsDocument(ctx context.Context, hash string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("catalog: exists document: %w", err)
	}
	return n > 0, nil
}

// GetDocument returns the document with the given identifier.
func (db *DB) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: document %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get document: %w", err)
	}
	return d, nil
}

// DocumentByHash returns the document stored under a content hash.
func (db *DB) DocumentByHash(ctx context.Context, hash string) (*models.Document, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE hash = ?`, hash)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: document %s: %w", hash, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: document by hash: %w", err)
	}
	return d, nil
}

// DocumentIDsByHash maps each known hash to its document id. Unknown hashes
// are absent from the result.
func (db *DB) DocumentIDsByHash(ctx context.Context, hashes []string) (map[string]int64, error) {
	out := make(map[string]int64, len(hashes))
	for start := 0; start < len(hashes); start += hashLookupBatch {
		end := min(start+hashLookupBatch, len(hashes))
		batch := hashes[start:end]
		args := make([]any, len(batch))
		for i, h := range batch {
			args[i] = h
		}
		rows, err := db.conn.QueryContext(ctx,
			`SELECT hash, id FROM documents WHERE hash IN (`+placeholders(len(batch))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("catalog: ids by hash: %w", err)
		}
		for rows.Next() {
			var (
				h  string
				id int64
			)
			if err := rows.Scan(&h, &id); err != nil {
				rows.Close()
				return nil, err
			}
			out[h] = id
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListDocuments returns documents ordered by id. Soft-deleted rows are
// included only when raw is set.
func (db *DB) ListDocuments(ctx context.Context, raw bool) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents`
	if !raw {
		q += ` WHERE deleted = 0`
	}
	q += ` ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: list documents: %w", err)
	}
	defer rows.Close()
	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// AllHashes returns the hash of every catalogued document, deleted or not.
func (db *DB) AllHashes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT hash FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

// SetComment replaces a document's comment. An empty comment clears it.
func (db *DB) SetComment(ctx context.Context, id int64, comment string) error {
	return db.touch(ctx, id, `UPDATE documents SET comment = ?, updated_at = ? WHERE id = ?`,
		nullString(comment), time.Now().UTC(), id)
}

// SetDeleted sets or clears the soft-delete flag.
func (db *DB) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	flag := 0
	if deleted {
		flag = 1
	}
	return db.touch(ctx, id, `UPDATE documents SET deleted = ?, updated_at = ? WHERE id = ?`,
		flag, time.Now().UTC(), id)
}

// touch runs a single-row document update and reports a missing row as ErrNotFound.
func (db *DB) touch(ctx context.Context, id int64, q string, args ...any) error {
	res, err := db.conn.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("catalog: update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: document %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// AddSource records where a document was ingested from.
func (db *DB) AddSource(ctx context.Context, id int64, source string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO document_sources (document, source) VALUES (?, ?)`, id, source); err != nil {
			return fmt.Errorf("catalog: add source: %w", mapConstraint(err))
		}
		return touchTx(ctx, tx, id)
	})
}

// RemoveSource forgets one source of a document.
func (db *DB) RemoveSource(ctx context.Context, id int64, source string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM document_sources WHERE document = ? AND source = ?`, id, source)
		if err != nil {
			return fmt.Errorf("catalog: remove source: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog: source %q of %d: %w", source, id, apperr.ErrNotFound)
		}
		return touchTx(ctx, tx, id)
	})
}

// Sources lists a document's recorded sources in insertion order.
func (db *DB) Sources(ctx context.Context, id int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT source FROM document_sources WHERE document = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: sources: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// touchTx bumps updated_at inside an edit transaction.
func touchTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("catalog: touch document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: document %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
