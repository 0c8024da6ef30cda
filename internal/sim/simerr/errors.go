// Package simerr holds the error taxonomy shared by grid, scheduler and world.
//
// Every mutation that fails with one of these errors leaves state unchanged.
// "No path" is not an error: path queries return nil instead.
package simerr

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrOccupiedCell     = errors.New("occupied cell")
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrNonMonotonicTime = errors.New("non-monotonic time")
	ErrInvalidEntity    = errors.New("invalid entity")
	// ErrReentrantAdvance is returned when an action advances the clock it runs under.
	ErrReentrantAdvance = errors.New("reentrant advance")
)

// Error decorates a sentinel with the operation and its subject.
type Error struct {
	Op     string
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func New(op string, err error, format string, args ...any) *Error {
	return &Error{Op: op, Err: err, Detail: fmt.Sprintf(format, args...)}
}
