package query

import (
	"fmt"

	"github.com/starford/algiz/internal/apperr"
)

// Parse turns query text into an AST. Empty text parses to All.
//
// Terms are tags, parenthesised groups or negated terms. Adjacent terms are
// joined by AND; the explicit keywords AND, OR and XOR share one
// left-associative chain, so "a b OR c" is (a AND b) OR c. Runs of the same
// operator are flattened into one n-ary node. A parenthesised XOR group is
// kept as its own node, since XOR counts membership over all of its operands.
func Parse(text string) (*Node, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, grouped: make(map[*Node]bool)}
	if p.peek().kind == tokEOF {
		return All(), nil
	}
	n, err := p.chain()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok.kind)
	}
	return n, nil
}

type parser struct {
	toks    []token
	pos     int
	grouped map[*Node]bool // nodes produced by a parenthesised group
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &apperr.QueryError{Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) chain() (*Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		kind := KindAnd
		switch p.peek().kind {
		case tokAnd:
			p.next()
		case tokOr:
			p.next()
			kind = KindOr
		case tokXor:
			p.next()
			kind = KindXor
		case tokTag, tokNot, tokLParen:
			// implicit AND
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = p.combine(kind, left, right)
	}
}

func (p *parser) unary() (*Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokTag:
		return Tag(tok.text), nil
	case tokNot:
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not(operand), nil
	case tokLParen:
		if p.peek().kind == tokRParen {
			p.next()
			return All(), nil
		}
		n, err := p.chain()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "missing \")\" for \"(\" at %d", tok.pos)
		}
		p.grouped[n] = true
		return n, nil
	case tokEOF:
		return nil, p.errorf(tok, "expected a term")
	}
	return nil, p.errorf(tok, "unexpected %s", tok.kind)
}

// combine joins left and right under kind, flattening same-kind operands.
// Groups are only merged into And and Or, where grouping does not change
// the result.
func (p *parser) combine(kind Kind, left, right *Node) *Node {
	merge := func(n *Node) bool {
		return n.Kind == kind && (kind != KindXor || !p.grouped[n])
	}
	var out *Node
	if merge(left) {
		out = left
	} else {
		out = &Node{Kind: kind, Children: []*Node{left}}
	}
	if merge(right) {
		out.Children = append(out.Children, right.Children...)
	} else {
		out.Children = append(out.Children, right)
	}
	return out
}
