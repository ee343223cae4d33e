// Package catalog provides the SQLite-backed relational catalog of documents,
// taxonomy nodes, tags and their associations.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/algiz/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         INTEGER PRIMARY KEY,
	hash       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	ext        TEXT NOT NULL DEFAULT '',
	size       INTEGER NOT NULL DEFAULT 0,
	media_type TEXT NOT NULL DEFAULT '',
	comment    TEXT,
	deleted    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_sources (
	document INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	source   TEXT NOT NULL,
	UNIQUE(document, source)
);

CREATE TABLE IF NOT EXISTS taxonyms (
	id     INTEGER PRIMARY KEY,
	parent INTEGER REFERENCES taxonyms(id),
	name   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_taxonyms_parent ON taxonyms(parent);

CREATE TABLE IF NOT EXISTS taxonym_aliases (
	taxonym INTEGER NOT NULL REFERENCES taxonyms(id) ON DELETE CASCADE,
	alias   TEXT NOT NULL,
	UNIQUE(taxonym, alias)
);

CREATE TABLE IF NOT EXISTS taxonym_parents (
	child  INTEGER NOT NULL REFERENCES taxonyms(id) ON DELETE CASCADE,
	parent INTEGER NOT NULL REFERENCES taxonyms(id) ON DELETE CASCADE,
	UNIQUE(child, parent)
);

CREATE INDEX IF NOT EXISTS idx_taxonym_parents_parent ON taxonym_parents(parent);

CREATE TABLE IF NOT EXISTS tags (
	id      INTEGER PRIMARY KEY,
	taxonym INTEGER NOT NULL UNIQUE REFERENCES taxonyms(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tag_implications (
	antecedent INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	consequent INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	UNIQUE(antecedent, consequent)
);

CREATE TABLE IF NOT EXISTS document_tags (
	document INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	tag      INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	UNIQUE(document, tag)
);

CREATE INDEX IF NOT EXISTS idx_document_tags_tag ON document_tags(tag);

INSERT OR IGNORE INTO taxonyms (id, parent, name) VALUES (1, NULL, '');
`

// DB wraps a sql.DB with catalog operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite catalog and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	// Single writer; one connection keeps pragmas and transactions on the same handle.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

// mapConstraint translates SQLite constraint failures into apperr sentinels.
func mapConstraint(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", apperr.ErrAlreadyExists, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	}
	return err
}

// placeholders returns "?,?,…" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
