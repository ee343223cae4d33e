package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/query"
	"github.com/starford/algiz/internal/view"
)

// ProjectQuery asks Search to project its result into a freshly generated
// query{N} view.
const ProjectQuery = string(view.KindQuery)

// SearchOptions tunes Search.
type SearchOptions struct {
	// Raw includes soft-deleted documents.
	Raw bool
	// View projects the result: "" leaves views alone, ProjectQuery creates
	// a new query{N} view, and any other name has its content replaced.
	View string
	// Context restricts tag resolution to the subtree of this taxonym.
	Context string
}

// SearchResult is the outcome of one query.
type SearchResult struct {
	Query string  `json:"query"`
	IDs   []int64 `json:"ids"`
	View  string  `json:"view,omitempty"`
}

// Search parses text, evaluates it against the catalog and optionally
// materializes the ordered result as a view.
func (a *Archive) Search(ctx context.Context, text string, opts SearchOptions) (*SearchResult, error) {
	n, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	g, err := a.graph(ctx)
	if err != nil {
		return nil, err
	}
	c := query.NewCompiler(g, a.db)
	if opts.Context != "" {
		id, err := lookup(g, opts.Context)
		if err != nil {
			return nil, fmt.Errorf("archive: search context: %w", err)
		}
		c = c.WithContext(id)
	}
	e, err := c.Compile(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("archive: compile: %w", err)
	}
	ids, err := a.db.Execute(ctx, e, opts.Raw)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	res := &SearchResult{Query: n.String(), IDs: ids}
	switch opts.View {
	case "":
	case ProjectQuery:
		name, err := a.views.Generate(view.KindQuery)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		if err := a.views.Replace(ctx, name, ids); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		res.View = name
	default:
		if err := a.views.Replace(ctx, opts.View, ids); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		res.View = opts.View
	}
	a.logger.Debug("search",
		slog.String("query", res.Query),
		slog.Int("matches", len(ids)),
		slog.String("view", res.View))
	return res, nil
}

// Documents loads the rows for ids, keeping their order.
func (a *Archive) Documents(ctx context.Context, ids []int64) ([]models.Document, error) {
	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		d, err := a.db.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		out = append(out, *d)
	}
	return out, nil
}
