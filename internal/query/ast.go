// Package query parses the boolean tag-query language and compiles it into a
// typed set-algebra expression that a storage backend can execute.
package query

import "strings"

// Kind identifies the type of an AST node.
type Kind int

const (
	KindAll Kind = iota
	KindNone
	KindTag
	KindNot
	KindAnd
	KindOr
	KindXor
)

func (k Kind) String() string {
	switch k {
	case KindAll:
		return "All"
	case KindNone:
		return "None"
	case KindTag:
		return "Tag"
	case KindNot:
		return "Not"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindXor:
		return "Xor"
	}
	return "Unknown"
}

// Node is a query AST node. Pattern is set for KindTag; Children holds the
// single operand of KindNot and the operands of the n-ary kinds.
type Node struct {
	Kind     Kind
	Pattern  string
	Children []*Node
}

// All matches every live document.
func All() *Node { return &Node{Kind: KindAll} }

// None matches nothing.
func None() *Node { return &Node{Kind: KindNone} }

// Tag matches documents carrying a tag whose taxonym resolves from pattern.
func Tag(pattern string) *Node { return &Node{Kind: KindTag, Pattern: pattern} }

// Not is the complement of n.
func Not(n *Node) *Node { return &Node{Kind: KindNot, Children: []*Node{n}} }

// And is the intersection of ns.
func And(ns ...*Node) *Node { return &Node{Kind: KindAnd, Children: ns} }

// Or is the union of ns.
func Or(ns ...*Node) *Node { return &Node{Kind: KindOr, Children: ns} }

// Xor matches documents present in exactly one of ns.
func Xor(ns ...*Node) *Node { return &Node{Kind: KindXor, Children: ns} }

// String renders n back into query text that parses to an equivalent tree.
// All renders as "()" (empty at top level) and None as "-()".
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b, false)
	return b.String()
}

func (n *Node) write(b *strings.Builder, nested bool) {
	switch n.Kind {
	case KindAll:
		if nested {
			b.WriteString("()")
		}
	case KindNone:
		b.WriteString("-()")
	case KindTag:
		b.WriteString(n.Pattern)
	case KindNot:
		b.WriteByte('-')
		n.Children[0].write(b, true)
	case KindAnd, KindOr, KindXor:
		sep := map[Kind]string{KindAnd: " ", KindOr: " OR ", KindXor: " XOR "}[n.Kind]
		if nested {
			b.WriteByte('(')
		}
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(sep)
			}
			c.write(b, true)
		}
		if nested {
			b.WriteByte(')')
		}
	}
}
