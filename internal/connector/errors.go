// Package connector defines the mailbox access contract and its error
// taxonomy. Implementations live in subpackages.
package connector

import (
	"errors"
	"fmt"
)

// Kind separates connector failures the scheduler can retry from those
// that need operator attention.
type Kind string

const (
	// Transient: network or server trouble; the next cycle retries.
	Transient Kind = "transient"
	// Fatal: bad credentials or a missing folder; retrying cannot help.
	Fatal Kind = "fatal"
)

// Error wraps a mailbox failure with its retry classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("connector: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewTransient(op string, err error) *Error {
	return &Error{Kind: Transient, Op: op, Err: err}
}

func NewFatal(op string, err error) *Error {
	return &Error{Kind: Fatal, Op: op, Err: err}
}

// IsFatal reports whether err carries a Fatal classification. Errors
// outside the taxonomy default to transient: an unknown failure should
// not kill the schedule loop.
func IsFatal(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == Fatal
	}
	return false
}

// IsTransient reports whether err is a classified mailbox failure the
// next cycle can retry. Errors outside the taxonomy are not transient:
// a database or programming error should still fail loudly.
func IsTransient(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == Transient
	}
	return false
}
