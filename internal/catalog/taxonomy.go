package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

// CreateTaxonym inserts a node under parent together with its canonical alias.
func (db *DB) CreateTaxonym(ctx context.Context, parent int64, name string) (int64, error) {
	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO taxonyms (parent, name) VALUES (?, ?)`, parent, name)
		if err != nil {
			return fmt.Errorf("catalog: insert taxonym: %w", mapConstraint(err))
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("catalog: insert taxonym id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO taxonym_aliases (taxonym, alias) VALUES (?, ?)`, id, name); err != nil {
			return fmt.Errorf("catalog: insert canonical alias: %w", mapConstraint(err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteTaxonym removes a node, its aliases, its extra parent/child edges and
// its tag (with the tag's implications and document associations).
// The root and nodes that are still canonical parents cannot be deleted.
func (db *DB) DeleteTaxonym(ctx context.Context, id int64) error {
	if id == models.RootTaxonym {
		return fmt.Errorf("catalog: delete root taxonym: %w", apperr.ErrConflict)
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := taxonymExists(ctx, tx, id); err != nil {
			return err
		}
		var children int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM taxonyms WHERE parent = ?`, id).Scan(&children); err != nil {
			return fmt.Errorf("catalog: count children: %w", err)
		}
		if children > 0 {
			return fmt.Errorf("catalog: taxonym %d has %d canonical children: %w", id, children, apperr.ErrConflict)
		}
		var tagID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE taxonym = ?`, id).Scan(&tagID)
		switch {
		case err == nil:
			if err := deleteTagTx(ctx, tx, tagID); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("catalog: lookup tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM taxonym_parents WHERE child = ? OR parent = ?`, id, id); err != nil {
			return fmt.Errorf("catalog: delete parent edges: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM taxonym_aliases WHERE taxonym = ?`, id); err != nil {
			return fmt.Errorf("catalog: delete aliases: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM taxonyms WHERE id = ?`, id); err != nil {
			return fmt.Errorf("catalog: delete taxonym: %w", err)
		}
		return nil
	})
}

func taxonymExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM taxonyms WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("catalog: taxonym exists: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("catalog: taxonym %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// RenameTaxonym changes the canonical name; the old canonical alias is replaced.
func (db *DB) RenameTaxonym(ctx context.Context, id int64, name string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var old string
		err := tx.QueryRowContext(ctx, `SELECT name FROM taxonyms WHERE id = ?`, id).Scan(&old)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("catalog: taxonym %d: %w", id, apperr.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("catalog: rename taxonym: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE taxonyms SET name = ? WHERE id = ?`, name, id); err != nil {
			return fmt.Errorf("catalog: rename taxonym: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM taxonym_aliases WHERE taxonym = ? AND alias = ?`, id, old); err != nil {
			return fmt.Errorf("catalog: drop old alias: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO taxonym_aliases (taxonym, alias) VALUES (?, ?)`, id, name); err != nil {
			return fmt.Errorf("catalog: insert canonical alias: %w", err)
		}
		return nil
	})
}

// AddAlias attaches an additional name to a node.
func (db *DB) AddAlias(ctx context.Context, id int64, alias string) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO taxonym_aliases (taxonym, alias) VALUES (?, ?)`, id, alias)
	if err != nil {
		return fmt.Errorf("catalog: add alias: %w", mapConstraint(err))
	}
	return nil
}

// RemoveAlias detaches a non-canonical name from a node.
func (db *DB) RemoveAlias(ctx context.Context, id int64, alias string) error {
	var name string
	err := db.conn.QueryRowContext(ctx, `SELECT name FROM taxonyms WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("catalog: taxonym %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("catalog: remove alias: %w", err)
	}
	if name == alias {
		return fmt.Errorf("catalog: %q is the canonical name: %w", alias, apperr.ErrConflict)
	}
	res, err := db.conn.ExecContext(ctx, `DELETE FROM taxonym_aliases WHERE taxonym = ? AND alias = ?`, id, alias)
	if err != nil {
		return fmt.Errorf("catalog: remove alias: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: alias %q of %d: %w", alias, id, apperr.ErrNotFound)
	}
	return nil
}

// AddParent adds a non-canonical parent edge. Callers are expected to have
// checked that the edge does not close a cycle.
func (db *DB) AddParent(ctx context.Context, child, parent int64) error {
	var canonical sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `SELECT parent FROM taxonyms WHERE id = ?`, child).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("catalog: taxonym %d: %w", child, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("catalog: add parent: %w", err)
	}
	if canonical.Valid && canonical.Int64 == parent {
		return fmt.Errorf("catalog: %d is already the canonical parent of %d: %w", parent, child, apperr.ErrAlreadyExists)
	}
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO taxonym_parents (child, parent) VALUES (?, ?)`, child, parent); err != nil {
		return fmt.Errorf("catalog: add parent: %w", mapConstraint(err))
	}
	return nil
}

// RemoveParent drops a non-canonical parent edge.
func (db *DB) RemoveParent(ctx context.Context, child, parent int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM taxonym_parents WHERE child = ? AND parent = ?`, child, parent)
	if err != nil {
		return fmt.Errorf("catalog: remove parent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: edge %d -> %d: %w", child, parent, apperr.ErrNotFound)
	}
	return nil
}

// LoadTaxonomy returns every node with its aliases and extra parents, ordered by id.
func (db *DB) LoadTaxonomy(ctx context.Context) ([]models.Taxonym, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, parent, name FROM taxonyms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load taxonyms: %w", err)
	}
	var nodes []models.Taxonym
	index := make(map[int64]int)
	for rows.Next() {
		var (
			t      models.Taxonym
			parent sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &parent, &t.Name); err != nil {
			rows.Close()
			return nil, err
		}
		t.Parent = parent.Int64
		index[t.ID] = len(nodes)
		nodes = append(nodes, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if err := db.eachPair(ctx, `SELECT taxonym, alias FROM taxonym_aliases ORDER BY rowid`, func(id int64, alias string) {
		if i, ok := index[id]; ok {
			nodes[i].Aliases = append(nodes[i].Aliases, alias)
		}
	}); err != nil {
		return nil, fmt.Errorf("catalog: load aliases: %w", err)
	}

	edges, err := db.conn.QueryContext(ctx, `SELECT child, parent FROM taxonym_parents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load parents: %w", err)
	}
	defer edges.Close()
	for edges.Next() {
		var child, parent int64
		if err := edges.Scan(&child, &parent); err != nil {
			return nil, err
		}
		if i, ok := index[child]; ok {
			nodes[i].Parents = append(nodes[i].Parents, parent)
		}
	}
	return nodes, edges.Err()
}

// GetTaxonym returns a single node with aliases and extra parents.
func (db *DB) GetTaxonym(ctx context.Context, id int64) (*models.Taxonym, error) {
	var (
		t      models.Taxonym
		parent sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx, `SELECT id, parent, name FROM taxonyms WHERE id = ?`, id).
		Scan(&t.ID, &parent, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: taxonym %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get taxonym: %w", err)
	}
	t.Parent = parent.Int64
	if err := db.eachPair(ctx, `SELECT taxonym, alias FROM taxonym_aliases WHERE taxonym = ? ORDER BY rowid`,
		func(_ int64, alias string) { t.Aliases = append(t.Aliases, alias) }, id); err != nil {
		return nil, fmt.Errorf("catalog: get aliases: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT parent FROM taxonym_parents WHERE child = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: get parents: %w", err)
	}
	if t.Parents, err = scanIDs(rows); err != nil {
		return nil, err
	}
	return &t, nil
}

// eachPair streams (id, text) rows into fn.
func (db *DB) eachPair(ctx context.Context, q string, fn func(int64, string), args ...any) error {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id int64
			s  string
		)
		if err := rows.Scan(&id, &s); err != nil {
			return err
		}
		fn(id, s)
	}
	return rows.Err()
}
