package archive

import (
	"context"
	"fmt"

	"github.com/starford/algiz/internal/taxonomy"
)

func (a *Archive) tagOf(ctx context.Context, g *taxonomy.Graph, name string) (int64, error) {
	tx, err := lookup(g, name)
	if err != nil {
		return 0, err
	}
	id, err := a.db.TagByTaxonym(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	return id, nil
}

// CreateTag makes the named taxonym applicable to documents.
func (a *Archive) CreateTag(ctx context.Context, name string) (int64, error) {
	g, err := a.graph(ctx)
	if err != nil {
		return 0, err
	}
	tx, err := lookup(g, name)
	if err != nil {
		return 0, err
	}
	id, err := a.db.CreateTag(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	return id, nil
}

// DeleteTag removes the tag of the named taxonym. The taxonym stays.
func (a *Archive) DeleteTag(ctx context.Context, name string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	id, err := a.tagOf(ctx, g, name)
	if err != nil {
		return err
	}
	if err := a.db.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Imply records that documents tagged antecedent also match consequent.
// Implication cycles are allowed; the query closure tolerates them.
func (a *Archive) Imply(ctx context.Context, antecedent, consequent string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	from, err := a.tagOf(ctx, g, antecedent)
	if err != nil {
		return err
	}
	to, err := a.tagOf(ctx, g, consequent)
	if err != nil {
		return err
	}
	if err := a.db.AddImplication(ctx, from, to); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Unimply removes an implication.
func (a *Archive) Unimply(ctx context.Context, antecedent, consequent string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	from, err := a.tagOf(ctx, g, antecedent)
	if err != nil {
		return err
	}
	to, err := a.tagOf(ctx, g, consequent)
	if err != nil {
		return err
	}
	if err := a.db.RemoveImplication(ctx, from, to); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Apply tags every document in ids with the named tag.
func (a *Archive) Apply(ctx context.Context, name string, ids ...int64) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	tag, err := a.tagOf(ctx, g, name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.db.ApplyTag(ctx, id, tag); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}

// Unapply removes the named tag from every document in ids.
func (a *Archive) Unapply(ctx context.Context, name string, ids ...int64) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	tag, err := a.tagOf(ctx, g, name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.db.RemoveTag(ctx, id, tag); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}
