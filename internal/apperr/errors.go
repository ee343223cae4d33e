// Package apperr defines the error taxonomy shared by the archive layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAmbiguous        = errors.New("ambiguous")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrDuplicateContent = errors.New("duplicate content")
	ErrMalformedQuery   = errors.New("malformed query")
	ErrInconsistentView = errors.New("inconsistent view")
	ErrCycle            = errors.New("cycle")
)

// QueryError reports a parse failure at a byte offset of the query text.
type QueryError struct {
	Pos int
	Msg string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("malformed query at %d: %s", e.Pos, e.Msg)
}

// Unwrap lets errors.Is match ErrMalformedQuery.
func (e *QueryError) Unwrap() error { return ErrMalformedQuery }
