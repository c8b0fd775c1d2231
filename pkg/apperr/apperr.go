// Package apperr classifies failures so callers can decide whether to
// surface, skip, or just log them.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// InputError covers a missing query or missing identity.
	InputError Kind = "input"
	// SourceUnavailable means a page or whole source could not be reached in time.
	SourceUnavailable Kind = "source_unavailable"
	// ParseError means a price or required field could not be read.
	ParseError Kind = "parse"
	// PersistenceError wraps store read/write failures.
	PersistenceError Kind = "persistence"
	// DeliveryError wraps notification dispatch failures.
	DeliveryError Kind = "delivery"
	// NotFound is returned when a lookup legitimately has nothing to return.
	NotFound Kind = "not_found"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.InputError) style checks work via KindOf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Sentinel returns a bare error of the given kind, usable as an errors.Is target.
func Sentinel(kind Kind) error { return &Error{Kind: kind} }

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }
