package query

import "slices"

// Index supplies the base sets an Expr is evaluated against.
type Index interface {
	// Universe returns every visible document id.
	Universe() []int64
	// Tagged returns the ids of documents carrying any of tags.
	Tagged(tags []int64) []int64
}

// Evaluate computes e in memory and returns the matching ids in ascending
// order. Results are restricted to the universe.
func Evaluate(e Expr, ix Index) []int64 {
	universe := toSet(ix.Universe())
	got := eval(e, ix, universe)
	out := make([]int64, 0, len(got))
	for id := range got {
		if _, ok := universe[id]; ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

type idSet map[int64]struct{}

func toSet(ids []int64) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func eval(e Expr, ix Index, universe idSet) idSet {
	switch x := e.(type) {
	case Universe:
		return universe
	case Empty:
		return idSet{}
	case Tagged:
		return toSet(ix.Tagged(x.Tags))
	case Complement:
		inner := eval(x.X, ix, universe)
		out := make(idSet)
		for id := range universe {
			if _, ok := inner[id]; !ok {
				out[id] = struct{}{}
			}
		}
		return out
	case Intersect:
		if len(x.Xs) == 0 {
			return universe
		}
		out := eval(x.Xs[0], ix, universe)
		for _, sub := range x.Xs[1:] {
			next := eval(sub, ix, universe)
			kept := make(idSet)
			for id := range out {
				if _, ok := next[id]; ok {
					kept[id] = struct{}{}
				}
			}
			out = kept
		}
		return out
	case Union:
		out := make(idSet)
		for _, sub := range x.Xs {
			for id := range eval(sub, ix, universe) {
				out[id] = struct{}{}
			}
		}
		return out
	case ExactlyOne:
		counts := make(map[int64]int)
		for _, sub := range x.Xs {
			for id := range eval(sub, ix, universe) {
				counts[id]++
			}
		}
		out := make(idSet)
		for id, n := range counts {
			if n == 1 {
				out[id] = struct{}{}
			}
		}
		return out
	}
	return idSet{}
}
