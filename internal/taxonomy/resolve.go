package taxonomy

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/starford/algiz/internal/apperr"
)

// segment matches one path segment against node aliases.
type segment struct {
	literal string
	re      *regexp.Regexp
}

func compileSegment(s string) segment {
	if !strings.Contains(s, Wildcard) {
		return segment{literal: s}
	}
	parts := strings.Split(s, Wildcard)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return segment{re: regexp.MustCompile(`^` + strings.Join(parts, `.*`) + `$`)}
}

func (s segment) match(aliases []string) bool {
	for _, a := range aliases {
		if s.re != nil {
			if s.re.MatchString(a) {
				return true
			}
		} else if a == s.literal {
			return true
		}
	}
	return false
}

// Split breaks a qualified name into segments. The empty name has none.
func Split(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Delimiter)
}

// IsPattern reports whether name contains a wildcard.
func IsPattern(name string) bool {
	return strings.Contains(name, Wildcard)
}

// Resolve returns every node matching name below from, sorted by id.
//
// The first segment may match at any depth: nodes are visited breadth-first
// starting with the children of from. Each further segment must match a
// direct child of the node matched by the previous one. An empty name
// resolves to from itself; an unknown from resolves to nothing.
func (g *Graph) Resolve(name string, from int64) []int64 {
	if !g.Has(from) {
		return nil
	}
	segs := Split(name)
	if len(segs) == 0 {
		return []int64{from}
	}
	pats := make([]segment, len(segs))
	for i, s := range segs {
		pats[i] = compileSegment(s)
	}

	found := make(map[int64]struct{})
	visited := map[int64]bool{from: true}
	var frontier []int64
	for _, c := range g.nodes[from].children {
		if !visited[c] {
			visited[c] = true
			frontier = append(frontier, c)
		}
	}

	for len(frontier) > 0 {
		var next []int64
		for _, id := range frontier {
			n := g.nodes[id]
			if pats[0].match(n.aliases) {
				for _, hit := range g.descend(id, pats[1:]) {
					found[hit] = struct{}{}
				}
			}
			for _, c := range n.children {
				if !visited[c] {
					visited[c] = true
					next = append(next, c)
				}
			}
		}
		frontier = next
	}

	out := make([]int64, 0, len(found))
	for id := range found {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// descend follows the remaining segments one child layer at a time.
func (g *Graph) descend(id int64, pats []segment) []int64 {
	layer := []int64{id}
	for _, p := range pats {
		seen := make(map[int64]bool)
		var next []int64
		for _, cur := range layer {
			for _, c := range g.nodes[cur].children {
				if !seen[c] && p.match(g.nodes[c].aliases) {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		layer = next
	}
	return layer
}

// ResolveOne resolves name to exactly one node. Zero matches fail with
// apperr.ErrNotFound and several with apperr.ErrAmbiguous.
func (g *Graph) ResolveOne(name string, from int64) (int64, error) {
	ids := g.Resolve(name, from)
	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("taxonomy: %q: %w", name, apperr.ErrNotFound)
	case 1:
		return ids[0], nil
	}
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = fmt.Sprintf("%s (#%d)", g.Path(id), id)
	}
	return 0, fmt.Errorf("taxonomy: %q matches %s: %w", name, strings.Join(paths, ", "), apperr.ErrAmbiguous)
}
