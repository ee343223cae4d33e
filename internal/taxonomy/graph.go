// Package taxonomy holds the in-memory taxonomy graph and resolves qualified,
// wildcard-capable names against it.
//
// The graph is an arena keyed by taxonym id. Every node has one canonical
// parent and may have extra parents, so the structure is a DAG rooted at
// models.RootTaxonym. Acyclicity is checked when edges are added through
// WouldCycle; traversals still carry visited sets so a cycle that slipped in
// cannot make them loop.
package taxonomy

import (
	"regexp"
	"slices"
	"strings"

	"github.com/starford/algiz/internal/models"
)

const (
	// Delimiter separates path segments of a qualified name.
	Delimiter = ":"
	// Wildcard matches any run of characters within one segment.
	Wildcard = "*"
)

// NamePattern is the set of names a taxonym or alias may carry. It matches
// the tag characters of the query language minus the delimiter and wildcard.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type node struct {
	id       int64
	parent   int64
	name     string
	aliases  []string
	parents  []int64
	children []int64
}

// Graph is an immutable snapshot of the taxonomy.
type Graph struct {
	nodes map[int64]*node
}

// NewGraph builds a graph from catalog rows. Edges to unknown nodes are ignored.
func NewGraph(taxonyms []models.Taxonym) *Graph {
	g := &Graph{nodes: make(map[int64]*node, len(taxonyms))}
	for _, t := range taxonyms {
		aliases := t.Aliases
		if len(aliases) == 0 && t.Name != "" {
			aliases = []string{t.Name}
		}
		g.nodes[t.ID] = &node{
			id:      t.ID,
			parent:  t.Parent,
			name:    t.Name,
			aliases: aliases,
			parents: t.Parents,
		}
	}
	link := func(parent, child int64) {
		p, ok := g.nodes[parent]
		if !ok || slices.Contains(p.children, child) {
			return
		}
		p.children = append(p.children, child)
	}
	for _, t := range taxonyms {
		if t.Parent != 0 {
			link(t.Parent, t.ID)
		}
		for _, p := range t.Parents {
			link(p, t.ID)
		}
	}
	for _, n := range g.nodes {
		slices.Sort(n.children)
	}
	return g
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the catalog view of a node.
func (g *Graph) Node(id int64) (models.Taxonym, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return models.Taxonym{}, false
	}
	return models.Taxonym{
		ID:      n.id,
		Parent:  n.parent,
		Name:    n.name,
		Aliases: slices.Clone(n.aliases),
		Parents: slices.Clone(n.parents),
	}, true
}

// Children returns the canonical and extra children of id, sorted.
func (g *Graph) Children(id int64) []int64 {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.children)
}

// Path returns the canonical qualified name of id, e.g. "color:red".
// The root has the empty path.
func (g *Graph) Path(id int64) string {
	var segs []string
	seen := make(map[int64]bool)
	for cur := id; cur != 0 && !seen[cur]; {
		seen[cur] = true
		n, ok := g.nodes[cur]
		if !ok || n.parent == 0 {
			break
		}
		segs = append(segs, n.name)
		cur = n.parent
	}
	slices.Reverse(segs)
	return strings.Join(segs, Delimiter)
}

// WouldCycle reports whether adding the edge parent -> child would make
// child an ancestor of itself.
func (g *Graph) WouldCycle(child, parent int64) bool {
	if child == parent {
		return true
	}
	// A cycle appears iff parent is already reachable below child.
	visited := map[int64]bool{child: true}
	queue := []int64{child}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for _, c := range n.children {
			if c == parent {
				return true
			}
			if !visited[c] {
				visited[c] = true
				queue = append(queue, c)
			}
		}
	}
	return false
}
