package taxonomy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
)

// testGraph builds:
//
//	root
//	├── animal(2)
//	│   ├── cat(3)   aliases: cat, kitty
//	│   └── dog(4)
//	├── color(5)
//	│   └── red(6)
//	└── pet(7)       extra child: cat(3)
//	    └── red(8)   a second "red"
func testGraph() *Graph {
	return NewGraph([]models.Taxonym{
		{ID: 1, Name: ""},
		{ID: 2, Parent: 1, Name: "animal"},
		{ID: 3, Parent: 2, Name: "cat", Aliases: []string{"cat", "kitty"}, Parents: []int64{7}},
		{ID: 4, Parent: 2, Name: "dog"},
		{ID: 5, Parent: 1, Name: "color"},
		{ID: 6, Parent: 5, Name: "red"},
		{ID: 7, Parent: 1, Name: "pet"},
		{ID: 8, Parent: 7, Name: "red"},
	})
}

func TestResolve(t *testing.T) {
	g := testGraph()
	tests := []struct {
		name  string
		query string
		from  int64
		want  []int64
	}{
		{"wildcard children", "animal:*", models.RootTaxonym, []int64{3, 4}},
		{"single child under wildcard parent", "color:*", models.RootTaxonym, []int64{6}},
		{"float to any depth", "dog", models.RootTaxonym, []int64{4}},
		{"alias match", "kitty", models.RootTaxonym, []int64{3}},
		{"multi-parent node appears once", "cat", models.RootTaxonym, []int64{3}},
		{"ambiguous name returns all", "red", models.RootTaxonym, []int64{6, 8}},
		{"qualified disambiguates", "color:red", models.RootTaxonym, []int64{6}},
		{"extra parent edge is followed", "pet:cat", models.RootTaxonym, []int64{3}},
		{"partial wildcard", "d*", models.RootTaxonym, []int64{4}},
		{"infix wildcard", "c*t", models.RootTaxonym, []int64{3}},
		{"anchored segment", "at", models.RootTaxonym, nil},
		{"context restricts search", "red", 7, []int64{8}},
		{"empty name is context", "", 5, []int64{5}},
		{"unknown context", "red", 99, nil},
		{"no match", "fish", models.RootTaxonym, nil},
		{"intermediate must be direct", "animal:red", models.RootTaxonym, nil},
		{"star matches everything", "*", 5, []int64{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Resolve(tt.query, tt.from)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q, %d) mismatch (-want +got):\n%s", tt.query, tt.from, diff)
			}
		})
	}
}

func TestResolveOne(t *testing.T) {
	g := testGraph()

	id, err := g.ResolveOne("color:red", models.RootTaxonym)
	if err != nil {
		t.Fatalf("ResolveOne: %v", err)
	}
	if id != 6 {
		t.Errorf("id = %d, want 6", id)
	}

	if _, err := g.ResolveOne("red", models.RootTaxonym); !errors.Is(err, apperr.ErrAmbiguous) {
		t.Errorf("err = %v, want ErrAmbiguous", err)
	}
	if _, err := g.ResolveOne("fish", models.RootTaxonym); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveTerminatesOnCycle(t *testing.T) {
	// a(2) -> b(3) -> a(2) through an extra parent edge.
	g := NewGraph([]models.Taxonym{
		{ID: 1},
		{ID: 2, Parent: 1, Name: "a", Parents: []int64{3}},
		{ID: 3, Parent: 2, Name: "b"},
	})
	if got := g.Resolve("b", models.RootTaxonym); !cmp.Equal(got, []int64{3}) {
		t.Errorf("Resolve(b) = %v", got)
	}
	if got := g.Resolve("b:a:b", models.RootTaxonym); !cmp.Equal(got, []int64{3}) {
		t.Errorf("Resolve(b:a:b) = %v", got)
	}
	if p := g.Path(3); p != "a:b" {
		t.Errorf("Path = %q", p)
	}
}

func TestPath(t *testing.T) {
	g := testGraph()
	cases := map[int64]string{
		1: "",
		2: "animal",
		3: "animal:cat",
		8: "pet:red",
	}
	for id, want := range cases {
		if got := g.Path(id); got != want {
			t.Errorf("Path(%d) = %q, want %q", id, got, want)
		}
	}
}

func TestWouldCycle(t *testing.T) {
	g := testGraph()
	if !g.WouldCycle(2, 3) {
		t.Error("making cat a parent of animal should cycle")
	}
	if !g.WouldCycle(7, 7) {
		t.Error("self edge should cycle")
	}
	if g.WouldCycle(4, 5) {
		t.Error("color -> dog should not cycle")
	}
	if !g.WouldCycle(7, 3) {
		t.Error("cat -> pet should cycle via the extra edge")
	}
}

func TestNamePattern(t *testing.T) {
	for _, ok := range []string{"cat", "Red_2", "x"} {
		if !NamePattern.MatchString(ok) {
			t.Errorf("%q should be a valid name", ok)
		}
	}
	for _, bad := range []string{"", "a:b", "c*", "two words", "-x"} {
		if NamePattern.MatchString(bad) {
			t.Errorf("%q should be rejected", bad)
		}
	}
}
