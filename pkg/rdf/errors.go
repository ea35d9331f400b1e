package rdf

import (
	"errors"
	"fmt"
)

// ErrInvalidTerm is returned when a term of the wrong kind is used in a triple position
var ErrInvalidTerm = errors.New("invalid term")

// Position names a slot within a triple
type Position string

const (
	PositionSubject   Position = "subject"
	PositionPredicate Position = "predicate"
	PositionObject    Position = "object"
	PositionContext   Position = "context"
)

// TermError describes an input-contract violation for one triple position
type TermError struct {
	Position Position
	Term     Term
	Reason   string
}

func (e *TermError) Error() string {
	if e.Term == nil {
		return fmt.Sprintf("invalid %s: %s", e.Position, e.Reason)
	}
	return fmt.Sprintf("invalid %s %s: %s", e.Position, e.Term, e.Reason)
}

func (e *TermError) Unwrap() error {
	return ErrInvalidTerm
}
