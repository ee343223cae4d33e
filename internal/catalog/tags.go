package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

// CreateTag makes a taxonym applicable to documents.
func (db *DB) CreateTag(ctx context.Context, taxonym int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `INSERT INTO tags (taxonym) VALUES (?)`, taxonym)
	if err != nil {
		return 0, fmt.Errorf("catalog: create tag: %w", mapConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("catalog: create tag id: %w", err)
	}
	return id, nil
}

// DeleteTag removes a tag with its implication edges and document associations.
// The underlying taxonym is kept.
func (db *DB) DeleteTag(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return deleteTagTx(ctx, tx, id)
	})
}

func deleteTagTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tag_implications WHERE antecedent = ? OR consequent = ?`, id, id); err != nil {
		return fmt.Errorf("catalog: delete implications: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE tag = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete tag associations: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: tag %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// TagByTaxonym returns the tag attached to a taxonym.
func (db *DB) TagByTaxonym(ctx context.Context, taxonym int64) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM tags WHERE taxonym = ?`, taxonym).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("catalog: no tag on taxonym %d: %w", taxonym, apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: tag by taxonym: %w", err)
	}
	return id, nil
}

// GetTag returns a single tag.
func (db *DB) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	t := models.Tag{ID: id}
	err := db.conn.QueryRowContext(ctx, `SELECT taxonym FROM tags WHERE id = ?`, id).Scan(&t.Taxonym)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: tag %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get tag: %w", err)
	}
	return &t, nil
}

// TagsForTaxonyms returns the tags attached to any of the given taxonyms.
// Taxonyms without a tag are skipped.
func (db *DB) TagsForTaxonyms(ctx context.Context, taxonyms []int64) ([]models.Tag, error) {
	if len(taxonyms) == 0 {
		return nil, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, taxonym FROM tags WHERE taxonym IN (`+placeholders(len(taxonyms))+`) ORDER BY id`,
		int64Args(taxonyms)...)
	if err != nil {
		return nil, fmt.Errorf("catalog: tags for taxonyms: %w", err)
	}
	return scanTags(rows)
}

// ListTags returns every tag ordered by id.
func (db *DB) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, taxonym FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list tags: %w", err)
	}
	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Taxonym); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddImplication records that antecedent entails consequent.
func (db *DB) AddImplication(ctx context.Context, antecedent, consequent int64) error {
	if antecedent == consequent {
		return fmt.Errorf("catalog: tag %d cannot imply itself: %w", antecedent, apperr.ErrConflict)
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tag_implications (antecedent, consequent) VALUES (?, ?)`, antecedent, consequent)
	if err != nil {
		return fmt.Errorf("catalog: add implication: %w", mapConstraint(err))
	}
	return nil
}

// RemoveImplication drops one implication edge.
func (db *DB) RemoveImplication(ctx context.Context, antecedent, consequent int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM tag_implications WHERE antecedent = ? AND consequent = ?`, antecedent, consequent)
	if err != nil {
		return fmt.Errorf("catalog: remove implication: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: implication %d -> %d: %w", antecedent, consequent, apperr.ErrNotFound)
	}
	return nil
}

// Implications returns every implication edge.
func (db *DB) Implications(ctx context.Context) ([]models.Implication, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT antecedent, consequent FROM tag_implications ORDER BY antecedent, consequent`)
	if err != nil {
		return nil, fmt.Errorf("catalog: implications: %w", err)
	}
	defer rows.Close()
	var out []models.Implication
	for rows.Next() {
		var im models.Implication
		if err := rows.Scan(&im.Antecedent, &im.Consequent); err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, rows.Err()
}

// ApplyTag associates a tag with a document. Applying twice is a no-op.
func (db *DB) ApplyTag(ctx context.Context, document, tag int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO document_tags (document, tag) VALUES (?, ?)`, document, tag)
		if err != nil {
			return fmt.Errorf("catalog: apply tag: %w", mapConstraint(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return touchTx(ctx, tx, document)
	})
}

// RemoveTag dissociates a tag from a document.
func (db *DB) RemoveTag(ctx context.Context, document, tag int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM document_tags WHERE document = ? AND tag = ?`, document, tag)
		if err != nil {
			return fmt.Errorf("catalog: remove tag: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog: tag %d not on document %d: %w", tag, document, apperr.ErrNotFound)
		}
		return touchTx(ctx, tx, document)
	})
}

// DocumentTags returns the tags directly applied to a document.
func (db *DB) DocumentTags(ctx context.Context, document int64) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag FROM document_tags WHERE document = ? ORDER BY tag`, document)
	if err != nil {
		return nil, fmt.Errorf("catalog: document tags: %w", err)
	}
	return scanIDs(rows)
}
