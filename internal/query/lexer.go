package query

import (
	"fmt"

	"github.com/starford/algiz/internal/apperr"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokTag
	tokNot
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokXor
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokTag:
		return "tag"
	case tokNot:
		return `"-"`
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokXor:
		return "XOR"
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

var keywords = map[string]tokenKind{
	"AND": tokAnd,
	"OR":  tokOr,
	"XOR": tokXor,
}

func isTagChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == ':' || c == '*'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lex splits text into tokens. The final token is always tokEOF.
func lex(text string) ([]token, error) {
	var toks []token
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case isSpace(c):
			i++
		case c == '-':
			toks = append(toks, token{kind: tokNot, text: "-", pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case isTagChar(c):
			start := i
			for i < len(text) && isTagChar(text[i]) {
				i++
			}
			word := text[start:i]
			kind := tokTag
			if kw, ok := keywords[word]; ok {
				kind = kw
			}
			toks = append(toks, token{kind: kind, text: word, pos: start})
		default:
			return nil, &apperr.QueryError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(text)}), nil
}
