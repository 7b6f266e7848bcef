package library

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind, for use with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("unavailable")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrUnauthorized     = errors.New("unauthorized")
)

// ErrorKind classifies every error the circulation core hands back to callers.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindUnavailable      ErrorKind = "unavailable"
	KindInvalidOperation ErrorKind = "invalid_operation"
	KindInvalidAmount    ErrorKind = "invalid_amount"
	KindDuplicateID      ErrorKind = "duplicate_id"
	KindUnauthorized     ErrorKind = "unauthorized"
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:         ErrNotFound,
	KindUnavailable:      ErrUnavailable,
	KindInvalidOperation: ErrInvalidOperation,
	KindInvalidAmount:    ErrInvalidAmount,
	KindDuplicateID:      ErrDuplicateID,
	KindUnauthorized:     ErrUnauthorized,
}

// OpError carries the failing operation, the error kind and the id involved.
// All OpErrors are recoverable; none of them leaves state partially mutated.
type OpError struct {
	Op   string
	Kind ErrorKind
	ID   string // book, member, loan or reservation id, when relevant
	Msg  string
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.ID != "" {
		base += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) and friends work on an OpError.
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// IsKind reports whether err is an OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not an OpError.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}

func notFound(op, id, msg string) error {
	return &OpError{Op: op, Kind: KindNotFound, ID: id, Msg: msg}
}

func unavailable(op, id, msg string) error {
	return &OpError{Op: op, Kind: KindUnavailable, ID: id, Msg: msg}
}

func invalidOperation(op, id, msg string) error {
	return &OpError{Op: op, Kind: KindInvalidOperation, ID: id, Msg: msg}
}
