package archive

import (
	"context"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/taxonomy"
)

// ResolvedTaxonym is one resolution hit with its canonical path.
type ResolvedTaxonym struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

func validateName(name string) error {
	return validation.Validate(name, validation.Required, validation.Match(taxonomy.NamePattern))
}

// lookup resolves an exact name from the root. The empty name is the root.
func lookup(g *taxonomy.Graph, name string) (int64, error) {
	if taxonomy.IsPattern(name) {
		return 0, fmt.Errorf("archive: %q: wildcards are not allowed here: %w", name, apperr.ErrNotFound)
	}
	id, err := g.ResolveOne(name, models.RootTaxonym)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	return id, nil
}

// parentsOf returns the canonical parent of id followed by its extra parents.
func parentsOf(g *taxonomy.Graph, id int64) []int64 {
	n, _ := g.Node(id)
	ps := []int64{n.Parent}
	for _, p := range n.Parents {
		if !slices.Contains(ps, p) {
			ps = append(ps, p)
		}
	}
	return ps
}

// checkSiblings fails with apperr.ErrAlreadyExists when a child of one of
// parents other than self already answers to one of names.
func checkSiblings(g *taxonomy.Graph, parents []int64, self int64, names ...string) error {
	for _, p := range parents {
		for _, c := range g.Children(p) {
			if c == self {
				continue
			}
			n, _ := g.Node(c)
			for _, name := range names {
				if slices.Contains(n.Aliases, name) {
					return fmt.Errorf("archive: %q already names %s: %w", name, g.Path(c), apperr.ErrAlreadyExists)
				}
			}
		}
	}
	return nil
}

// AddTaxonym creates name below the node parent resolves to.
func (a *Archive) AddTaxonym(ctx context.Context, parent, name string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, fmt.Errorf("archive: taxonym name %q: %w", name, err)
	}
	g, err := a.graph(ctx)
	if err != nil {
		return 0, err
	}
	pid, err := lookup(g, parent)
	if err != nil {
		return 0, err
	}
	if err := checkSiblings(g, []int64{pid}, 0, name); err != nil {
		return 0, err
	}
	id, err := a.db.CreateTaxonym(ctx, pid, name)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	return id, nil
}

// RemoveTaxonym deletes a childless node along with its tag.
func (a *Archive) RemoveTaxonym(ctx context.Context, name string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	id, err := lookup(g, name)
	if err != nil {
		return err
	}
	if err := a.db.DeleteTaxonym(ctx, id); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// RenameTaxonym replaces a node's canonical name.
func (a *Archive) RenameTaxonym(ctx context.Context, name, newName string) error {
	if err := validateName(newName); err != nil {
		return fmt.Errorf("archive: taxonym name %q: %w", newName, err)
	}
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	id, err := lookup(g, name)
	if err != nil {
		return err
	}
	if err := checkSiblings(g, parentsOf(g, id), id, newName); err != nil {
		return err
	}
	if err := a.db.RenameTaxonym(ctx, id, newName); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// AddAlias gives a node another name.
func (a *Archive) AddAlias(ctx context.Context, name, alias string) error {
	if err := validateName(alias); err != nil {
		return fmt.Errorf("archive: alias %q: %w", alias, err)
	}
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	id, err := lookup(g, name)
	if err != nil {
		return err
	}
	if err := checkSiblings(g, parentsOf(g, id), id, alias); err != nil {
		return err
	}
	if err := a.db.AddAlias(ctx, id, alias); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// RemoveAlias takes a non-canonical name away from a node.
func (a *Archive) RemoveAlias(ctx context.Context, name, alias string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	id, err := lookup(g, name)
	if err != nil {
		return err
	}
	if err := a.db.RemoveAlias(ctx, id, alias); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Link adds parent as an extra parent of child. Edges that would make child
// its own ancestor fail with apperr.ErrCycle.
func (a *Archive) Link(ctx context.Context, child, parent string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	cid, err := lookup(g, child)
	if err != nil {
		return err
	}
	pid, err := lookup(g, parent)
	if err != nil {
		return err
	}
	if g.WouldCycle(cid, pid) {
		return fmt.Errorf("archive: %s under %s: %w", g.Path(cid), g.Path(pid), apperr.ErrCycle)
	}
	n, _ := g.Node(cid)
	if err := checkSiblings(g, []int64{pid}, cid, n.Aliases...); err != nil {
		return err
	}
	if err := a.db.AddParent(ctx, cid, pid); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Unlink removes an extra parent edge.
func (a *Archive) Unlink(ctx context.Context, child, parent string) error {
	g, err := a.graph(ctx)
	if err != nil {
		return err
	}
	cid, err := lookup(g, child)
	if err != nil {
		return err
	}
	pid, err := lookup(g, parent)
	if err != nil {
		return err
	}
	if err := a.db.RemoveParent(ctx, cid, pid); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Resolve returns every node pattern matches below within (the root when
// empty).
func (a *Archive) Resolve(ctx context.Context, pattern, within string) ([]ResolvedTaxonym, error) {
	g, err := a.graph(ctx)
	if err != nil {
		return nil, err
	}
	from, err := lookup(g, within)
	if err != nil {
		return nil, err
	}
	ids := g.Resolve(pattern, from)
	out := make([]ResolvedTaxonym, len(ids))
	for i, id := range ids {
		out[i] = ResolvedTaxonym{ID: id, Path: g.Path(id)}
	}
	return out, nil
}
