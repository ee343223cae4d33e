package catalog

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/query"
	"github.com/starford/algiz/internal/taxonomy"
)

// fixture tags documents d1..d5:
//
//	d1: color:red
//	d2: color:blue
//	d3: color:red, animal:cat
//	d4: animal:cat
//	d5: nothing
//
// and records that animal:cat implies pet.
type fixture struct {
	db   *DB
	docs []int64
	tags map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	f := &fixture{db: db, tags: make(map[string]int64)}

	mk := func(parent int64, name string) int64 {
		id, err := db.CreateTaxonym(ctx, parent, name)
		if err != nil {
			t.Fatalf("CreateTaxonym(%s): %v", name, err)
		}
		return id
	}
	tag := func(key string, taxonym int64) {
		id, err := db.CreateTag(ctx, taxonym)
		if err != nil {
			t.Fatalf("CreateTag(%s): %v", key, err)
		}
		f.tags[key] = id
	}
	color := mk(models.RootTaxonym, "color")
	tag("red", mk(color, "red"))
	tag("blue", mk(color, "blue"))
	animal := mk(models.RootTaxonym, "animal")
	tag("cat", mk(animal, "cat"))
	tag("pet", mk(models.RootTaxonym, "pet"))
	if err := db.AddImplication(ctx, f.tags["cat"], f.tags["pet"]); err != nil {
		t.Fatalf("AddImplication: %v", err)
	}

	for _, name := range []string{"d1", "d2", "d3", "d4", "d5"} {
		f.docs = append(f.docs, insertDoc(t, db, name))
	}
	apply := func(doc int, keys ...string) {
		for _, k := range keys {
			if err := db.ApplyTag(ctx, f.docs[doc], f.tags[k]); err != nil {
				t.Fatalf("ApplyTag: %v", err)
			}
		}
	}
	apply(0, "red")
	apply(1, "blue")
	apply(2, "red", "cat")
	apply(3, "cat")
	return f
}

func (f *fixture) ids(idx ...int) []int64 {
	out := make([]int64, 0, len(idx))
	for _, i := range idx {
		out = append(out, f.docs[i])
	}
	return out
}

func (f *fixture) compile(t *testing.T, text string) query.Expr {
	t.Helper()
	ctx := context.Background()
	nodes, err := f.db.LoadTaxonomy(ctx)
	if err != nil {
		t.Fatalf("LoadTaxonomy: %v", err)
	}
	n, err := query.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	e, err := query.NewCompiler(taxonomy.NewGraph(nodes), f.db).Compile(ctx, n)
	if err != nil {
		t.Fatalf("Compile(%q): %v", text, err)
	}
	return e
}

func (f *fixture) run(t *testing.T, text string, raw bool) []int64 {
	t.Helper()
	got, err := f.db.Execute(context.Background(), f.compile(t, text), raw)
	if err != nil {
		t.Fatalf("Execute(%q): %v", text, err)
	}
	return got
}

func TestExecute(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{0, 1, 2, 3, 4}},
		{"-()", nil},
		{"red", []int{0, 2}},
		{"color:*", []int{0, 1, 2}},
		{"red cat", []int{2}},
		{"red OR cat", []int{0, 2, 3}},
		{"-red", []int{1, 3, 4}},
		{"color:* -red", []int{1}},
		{"red XOR cat", []int{0, 3}},
		{"red XOR cat XOR blue", []int{0, 1, 3}},
		{"pet", []int{2, 3}},
		{"-(red OR blue OR cat)", []int{4}},
		{"nosuchtag", nil},
		{"-nosuchtag", []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := f.run(t, tt.query, false)
			if diff := cmp.Diff(f.ids(tt.want...), got, cmpEmpty); diff != "" {
				t.Errorf("Execute(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestExecuteSoftDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.SetDeleted(ctx, f.docs[0], true); err != nil {
		t.Fatalf("SetDeleted: %v", err)
	}

	if got := f.run(t, "red", false); !slices.Equal(got, f.ids(2)) {
		t.Errorf("live red = %v", got)
	}
	if got := f.run(t, "red", true); !slices.Equal(got, f.ids(0, 2)) {
		t.Errorf("raw red = %v", got)
	}
	// The complement is taken against the visible universe only.
	if got := f.run(t, "-cat", false); !slices.Equal(got, f.ids(1, 4)) {
		t.Errorf("live -cat = %v", got)
	}
	if got := f.run(t, "-cat", true); !slices.Equal(got, f.ids(0, 1, 4)) {
		t.Errorf("raw -cat = %v", got)
	}
}

// dbIndex evaluates against catalog rows so the SQL rendering can be checked
// against the in-memory evaluator.
type dbIndex struct {
	t  *testing.T
	db *DB
}

func (ix dbIndex) Universe() []int64 {
	docs, err := ix.db.ListDocuments(context.Background(), false)
	if err != nil {
		ix.t.Fatalf("ListDocuments: %v", err)
	}
	out := make([]int64, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func (ix dbIndex) Tagged(tags []int64) []int64 {
	var out []int64
	for _, id := range ix.Universe() {
		applied, err := ix.db.DocumentTags(context.Background(), id)
		if err != nil {
			ix.t.Fatalf("DocumentTags: %v", err)
		}
		for _, tag := range applied {
			if slices.Contains(tags, tag) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

func TestExecuteMatchesEvaluate(t *testing.T) {
	f := newFixture(t)
	ix := dbIndex{t: t, db: f.db}
	for _, q := range []string{
		"red (cat OR blue)",
		"-(red XOR pet)",
		"(red XOR cat) XOR blue",
		"color:* -(pet OR red)",
		"-(-red -cat)",
		"animal:* XOR color:red XOR -blue",
	} {
		e := f.compile(t, q)
		want := query.Evaluate(e, ix)
		got, err := f.db.Execute(context.Background(), e, false)
		if err != nil {
			t.Fatalf("Execute(%q): %v", q, err)
		}
		if diff := cmp.Diff(want, got, cmpEmpty); diff != "" {
			t.Errorf("%q: SQL and in-memory results differ (-eval +sql):\n%s", q, diff)
		}
	}
}

var cmpEmpty = cmp.Comparer(func(x, y []int64) bool {
	return slices.Equal(x, y) || (len(x) == 0 && len(y) == 0)
})
