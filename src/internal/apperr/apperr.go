package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures by how the pipeline reacts to them.
type Kind int

const (
	// Transient covers network, timeout and malformed-body failures of a single attempt.
	Transient Kind = iota + 1
	// Schema means a payload parsed but the required fields were not found.
	Schema
	// Input means the caller gave nothing to search for.
	Input
	// Enrichment failures never fail the record they were enriching.
	Enrichment
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Schema:
		return "schema"
	case Input:
		return "input"
	case Enrichment:
		return "enrichment"
	}
	return "unknown"
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name. A nil err stays nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// ErrNoQuery is returned when neither an id, a title nor authors were supplied.
var ErrNoQuery = &Error{Kind: Input, Op: "identify", Err: errors.New("nothing to search for: no id, title or authors")}
