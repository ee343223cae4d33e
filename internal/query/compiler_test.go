package query

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/taxonomy"
)

// fakeTags serves tags whose id is ten times the taxonym id.
type fakeTags struct {
	taxonyms     map[int64]bool
	implications []models.Implication
	loads        int
}

func (f *fakeTags) TagsForTaxonyms(_ context.Context, ids []int64) ([]models.Tag, error) {
	var out []models.Tag
	for _, id := range ids {
		if f.taxonyms[id] {
			out = append(out, models.Tag{ID: id * 10, Taxonym: id})
		}
	}
	return out, nil
}

func (f *fakeTags) Implications(context.Context) ([]models.Implication, error) {
	f.loads++
	return f.implications, nil
}

// memIndex maps document ids to applied tag ids.
type memIndex map[int64][]int64

func (m memIndex) Universe() []int64 {
	var out []int64
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (m memIndex) Tagged(tags []int64) []int64 {
	var out []int64
	for id, applied := range m {
		for _, t := range applied {
			if slices.Contains(tags, t) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// fixture:
//
//	root(1)
//	├── color(2) ── red(3)
//	├── animal(4) ── cat(5), dog(6)
//	└── a(7), b(8), c(9)
func fixture() (*Compiler, *fakeTags) {
	g := taxonomy.NewGraph([]models.Taxonym{
		{ID: 1},
		{ID: 2, Parent: 1, Name: "color"},
		{ID: 3, Parent: 2, Name: "red"},
		{ID: 4, Parent: 1, Name: "animal"},
		{ID: 5, Parent: 4, Name: "cat"},
		{ID: 6, Parent: 4, Name: "dog"},
		{ID: 7, Parent: 1, Name: "a"},
		{ID: 8, Parent: 1, Name: "b"},
		{ID: 9, Parent: 1, Name: "c"},
	})
	tags := &fakeTags{
		taxonyms: map[int64]bool{3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true},
		implications: []models.Implication{
			{Antecedent: 50, Consequent: 40}, // cat -> animal
			{Antecedent: 60, Consequent: 40}, // dog -> animal
		},
	}
	return NewCompiler(g, tags), tags
}

func run(t *testing.T, c *Compiler, ix Index, text string) []int64 {
	t.Helper()
	n, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	e, err := c.Compile(context.Background(), n)
	if err != nil {
		t.Fatalf("Compile(%q): %v", text, err)
	}
	return Evaluate(e, ix)
}

func TestCompileTagResolvesWildcard(t *testing.T) {
	c, _ := fixture()
	e, err := c.Compile(context.Background(), Tag("color:*"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if diff := cmp.Diff(Expr(Tagged{Tags: []int64{30}}), e); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestColorScenario(t *testing.T) {
	c, _ := fixture()
	ix := memIndex{1: {30}, 2: {50}, 3: nil}

	if got := run(t, c, ix, "color:*"); !cmp.Equal(got, []int64{1}) {
		t.Errorf("color:* = %v, want [1]", got)
	}
	if got := run(t, c, ix, "-red"); !cmp.Equal(got, []int64{2, 3}) {
		t.Errorf("-red = %v, want [2 3]", got)
	}
}

func TestImplicationClosure(t *testing.T) {
	c, _ := fixture()
	ix := memIndex{1: {50}, 2: {60}, 3: {30}}
	if got := run(t, c, ix, "animal"); !cmp.Equal(got, []int64{1, 2}) {
		t.Errorf("animal = %v, want [1 2]", got)
	}
}

func TestImplicationClosureTransitiveAndCyclic(t *testing.T) {
	c, tags := fixture()
	tags.implications = []models.Implication{
		{Antecedent: 70, Consequent: 80}, // a -> b
		{Antecedent: 80, Consequent: 90}, // b -> c
		{Antecedent: 90, Consequent: 70}, // c -> a, closing the cycle
	}
	e, err := c.Compile(context.Background(), Tag("c"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if diff := cmp.Diff(Expr(Tagged{Tags: []int64{70, 80, 90}}), e); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got := Evaluate(e, memIndex{1: {70}, 2: nil}); !cmp.Equal(got, []int64{1}) {
		t.Errorf("documents = %v, want [1]", got)
	}
}

func TestImplicationsLoadedOnce(t *testing.T) {
	c, tags := fixture()
	if _, err := c.Compile(context.Background(), Or(Tag("cat"), Tag("dog"), Tag("red"))); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if tags.loads != 1 {
		t.Errorf("implications loaded %d times", tags.loads)
	}
}

func TestUnresolvedPatternIsEmpty(t *testing.T) {
	c, _ := fixture()
	for _, n := range []*Node{Tag("typo"), Tag("color"), Tag("nothing:*")} {
		e, err := c.Compile(context.Background(), n)
		if err != nil {
			t.Fatalf("Compile(%s): %v", n, err)
		}
		if _, ok := e.(Empty); !ok {
			t.Errorf("Compile(%s) = %#v, want Empty", n, e)
		}
	}
}

func TestXorScenario(t *testing.T) {
	c, _ := fixture()
	ix := memIndex{1: {70}, 2: {80}, 3: {90}, 4: nil}
	if got := run(t, c, ix, "a XOR b XOR c"); !cmp.Equal(got, []int64{1, 2, 3}) {
		t.Errorf("xor = %v, want [1 2 3]", got)
	}
	ix[1] = []int64{70, 80}
	if got := run(t, c, ix, "a XOR b XOR c"); !cmp.Equal(got, []int64{2, 3}) {
		t.Errorf("xor after overlap = %v, want [2 3]", got)
	}
}

func TestContextRestrictsResolution(t *testing.T) {
	c, _ := fixture()
	e, err := c.WithContext(2).Compile(context.Background(), Tag("cat"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, ok := e.(Empty); !ok {
		t.Errorf("cat below color = %#v, want Empty", e)
	}
}

func TestAlgebraLaws(t *testing.T) {
	c, _ := fixture()
	ix := memIndex{
		1: {30},
		2: {50, 30},
		3: {60},
		4: {70, 80},
		5: nil,
		6: {80},
	}
	operands := []string{"red", "animal", "b", "-red", "(a OR cat)", "typo", "()"}

	set := func(ids []int64) map[int64]bool {
		m := make(map[int64]bool)
		for _, id := range ids {
			m[id] = true
		}
		return m
	}
	collect := func(pred func(id int64) bool) []int64 {
		var out []int64
		for _, id := range ix.Universe() {
			if pred(id) {
				out = append(out, id)
			}
		}
		return out
	}

	for _, a := range operands {
		ra := set(run(t, c, ix, a))
		notA := run(t, c, ix, "-"+a)
		if want := collect(func(id int64) bool { return !ra[id] }); !cmp.Equal(notA, want, cmpEmpty) {
			t.Errorf("-%s = %v, want %v", a, notA, want)
		}
		for _, b := range operands {
			rb := set(run(t, c, ix, b))
			and := run(t, c, ix, a+" AND "+b)
			or := run(t, c, ix, a+" OR "+b)
			xor := run(t, c, ix, a+" XOR "+b)
			if want := collect(func(id int64) bool { return ra[id] && rb[id] }); !cmp.Equal(and, want, cmpEmpty) {
				t.Errorf("%s AND %s = %v, want %v", a, b, and, want)
			}
			if want := collect(func(id int64) bool { return ra[id] || rb[id] }); !cmp.Equal(or, want, cmpEmpty) {
				t.Errorf("%s OR %s = %v, want %v", a, b, or, want)
			}
			if want := collect(func(id int64) bool { return ra[id] != rb[id] }); !cmp.Equal(xor, want, cmpEmpty) {
				t.Errorf("%s XOR %s = %v, want %v", a, b, xor, want)
			}
		}
	}
}

// cmpEmpty treats nil and empty slices as equal.
var cmpEmpty = cmp.Comparer(func(x, y []int64) bool {
	return slices.Equal(x, y)
})
