package query

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/algiz/internal/models"
)

// Resolver maps a wildcard-capable qualified name to taxonym ids.
type Resolver interface {
	Resolve(name string, from int64) []int64
}

// TagSource supplies the tag rows the compiler needs.
type TagSource interface {
	TagsForTaxonyms(ctx context.Context, taxonyms []int64) ([]models.Tag, error)
	Implications(ctx context.Context) ([]models.Implication, error)
}

// Compiler turns an AST into an Expr. A Compiler snapshots the implication
// graph on first use and should not outlive one request.
type Compiler struct {
	resolver Resolver
	tags     TagSource
	context  int64

	// antecedents maps a consequent tag to the tags that imply it.
	antecedents map[int64][]int64
}

// NewCompiler returns a compiler that resolves tag patterns from the root.
func NewCompiler(r Resolver, tags TagSource) *Compiler {
	return &Compiler{resolver: r, tags: tags, context: models.RootTaxonym}
}

// WithContext returns a copy that resolves tag patterns below taxonym id.
func (c *Compiler) WithContext(id int64) *Compiler {
	cp := *c
	cp.context = id
	return &cp
}

// Compile translates n into a set expression.
//
// A tag pattern that resolves to no tag compiles to Empty rather than an
// error, so a misspelt tag yields no documents.
func (c *Compiler) Compile(ctx context.Context, n *Node) (Expr, error) {
	switch n.Kind {
	case KindAll:
		return Universe{}, nil
	case KindNone:
		return Empty{}, nil
	case KindTag:
		return c.compileTag(ctx, n.Pattern)
	case KindNot:
		x, err := c.Compile(ctx, n.Children[0])
		if err != nil {
			return nil, err
		}
		switch x.(type) {
		case Empty:
			return Universe{}, nil
		case Universe:
			return Empty{}, nil
		}
		return Complement{X: x}, nil
	case KindAnd, KindOr, KindXor:
		xs := make([]Expr, 0, len(n.Children))
		for _, child := range n.Children {
			x, err := c.Compile(ctx, child)
			if err != nil {
				return nil, err
			}
			xs = append(xs, x)
		}
		switch n.Kind {
		case KindAnd:
			return intersect(xs), nil
		case KindOr:
			return union(xs), nil
		default:
			return exactlyOne(xs), nil
		}
	}
	return nil, fmt.Errorf("query: unknown node kind %v", n.Kind)
}

func (c *Compiler) compileTag(ctx context.Context, pattern string) (Expr, error) {
	taxonyms := c.resolver.Resolve(pattern, c.context)
	if len(taxonyms) == 0 {
		return Empty{}, nil
	}
	tags, err := c.tags.TagsForTaxonyms(ctx, taxonyms)
	if err != nil {
		return nil, fmt.Errorf("query: tags for %q: %w", pattern, err)
	}
	if len(tags) == 0 {
		return Empty{}, nil
	}
	seeds := make([]int64, len(tags))
	for i, t := range tags {
		seeds[i] = t.ID
	}
	closed, err := c.closure(ctx, seeds)
	if err != nil {
		return nil, err
	}
	return Tagged{Tags: closed}, nil
}

// closure adds every tag that implies one of seeds, directly or transitively.
func (c *Compiler) closure(ctx context.Context, seeds []int64) ([]int64, error) {
	if c.antecedents == nil {
		edges, err := c.tags.Implications(ctx)
		if err != nil {
			return nil, fmt.Errorf("query: load implications: %w", err)
		}
		c.antecedents = make(map[int64][]int64, len(edges))
		for _, e := range edges {
			c.antecedents[e.Consequent] = append(c.antecedents[e.Consequent], e.Antecedent)
		}
	}
	visited := make(map[int64]bool, len(seeds))
	queue := make([]int64, 0, len(seeds))
	for _, s := range seeds {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}
	for i := 0; i < len(queue); i++ {
		for _, a := range c.antecedents[queue[i]] {
			if !visited[a] {
				visited[a] = true
				queue = append(queue, a)
			}
		}
	}
	slices.Sort(queue)
	return queue, nil
}

func intersect(xs []Expr) Expr {
	var kept []Expr
	for _, x := range xs {
		switch x.(type) {
		case Empty:
			return Empty{}
		case Universe:
			continue
		}
		kept = append(kept, x)
	}
	switch len(kept) {
	case 0:
		return Universe{}
	case 1:
		return kept[0]
	}
	return Intersect{Xs: kept}
}

func union(xs []Expr) Expr {
	var kept []Expr
	for _, x := range xs {
		switch x.(type) {
		case Universe:
			return Universe{}
		case Empty:
			continue
		}
		kept = append(kept, x)
	}
	switch len(kept) {
	case 0:
		return Empty{}
	case 1:
		return kept[0]
	}
	return Union{Xs: kept}
}

func exactlyOne(xs []Expr) Expr {
	// Empty operands never contribute to a membership count.
	var kept []Expr
	for _, x := range xs {
		if _, ok := x.(Empty); ok {
			continue
		}
		kept = append(kept, x)
	}
	switch len(kept) {
	case 0:
		return Empty{}
	case 1:
		return kept[0]
	}
	return ExactlyOne{Xs: kept}
}
