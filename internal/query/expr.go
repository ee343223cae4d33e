package query

// Expr is the set-algebra form of a compiled query. Every tag pattern has
// been resolved to concrete tag ids, so an Expr can be evaluated by any
// backend without access to the taxonomy.
type Expr interface {
	isExpr()
}

// Universe is every document visible to the execution (live documents, or
// all documents in raw mode).
type Universe struct{}

// Empty is the empty set.
type Empty struct{}

// Tagged is the set of documents carrying at least one of Tags.
type Tagged struct {
	Tags []int64
}

// Complement is Universe minus X.
type Complement struct {
	X Expr
}

// Intersect is the intersection of Xs.
type Intersect struct {
	Xs []Expr
}

// Union is the union of Xs.
type Union struct {
	Xs []Expr
}

// ExactlyOne holds the documents that belong to exactly one of Xs.
type ExactlyOne struct {
	Xs []Expr
}

func (Universe) isExpr()   {}
func (Empty) isExpr()      {}
func (Tagged) isExpr()     {}
func (Complement) isExpr() {}
func (Intersect) isExpr()  {}
func (Union) isExpr()      {}
func (ExactlyOne) isExpr() {}
