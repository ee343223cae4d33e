package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/algiz/internal/query"
)

// Execute runs a compiled query and returns the matching document ids in
// ascending order. Soft-deleted documents are excluded unless raw is set.
func (db *DB) Execute(ctx context.Context, e query.Expr, raw bool) ([]int64, error) {
	b := &sqlBuilder{raw: raw}
	q := `SELECT id FROM documents WHERE id IN (` + b.build(e) + `)`
	if !raw {
		q += ` AND deleted = 0`
	}
	q += ` ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, q, b.args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: execute: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("catalog: execute: %w", err)
	}
	return ids, nil
}

// sqlBuilder renders an Expr as one SQLite compound select producing a
// single "id" column. Arguments are collected in the order their
// placeholders appear in the text.
type sqlBuilder struct {
	raw  bool
	args []any
}

func (b *sqlBuilder) universe() string {
	if b.raw {
		return `SELECT id FROM documents`
	}
	return `SELECT id FROM documents WHERE deleted = 0`
}

func (b *sqlBuilder) build(e query.Expr) string {
	switch x := e.(type) {
	case query.Universe:
		return b.universe()
	case query.Tagged:
		if len(x.Tags) == 0 {
			break
		}
		b.args = append(b.args, int64Args(x.Tags)...)
		return `SELECT document AS id FROM document_tags WHERE tag IN (` + placeholders(len(x.Tags)) + `)`
	case query.Complement:
		return b.universe() + ` EXCEPT ` + b.operand(x.X)
	case query.Intersect:
		if len(x.Xs) == 0 {
			return b.universe()
		}
		return b.compound(x.Xs, ` INTERSECT `)
	case query.Union:
		if len(x.Xs) == 0 {
			break
		}
		return b.compound(x.Xs, ` UNION `)
	case query.ExactlyOne:
		if len(x.Xs) == 0 {
			break
		}
		parts := make([]string, len(x.Xs))
		for i, sub := range x.Xs {
			parts[i] = `SELECT DISTINCT id FROM (` + b.build(sub) + `)`
		}
		return `SELECT id FROM (` + strings.Join(parts, ` UNION ALL `) + `) GROUP BY id HAVING count(*) = 1`
	}
	return `SELECT id FROM documents WHERE 0`
}

// operand wraps a sub-expression so it can stand as one term of a compound select.
func (b *sqlBuilder) operand(e query.Expr) string {
	return `SELECT id FROM (` + b.build(e) + `)`
}

func (b *sqlBuilder) compound(xs []query.Expr, op string) string {
	parts := make([]string, len(xs))
	for i, sub := range xs {
		parts[i] = b.operand(sub)
	}
	return strings.Join(parts, op)
}
