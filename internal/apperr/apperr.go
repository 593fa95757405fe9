// Package apperr defines the error taxonomy shared by the household and ledger
// components. Each error carries a human-readable message and matches one of
// the package sentinels with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input (empty name, non-numeric amount).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks lookups with no match (household code, member email).
	ErrNotFound = errors.New("not found")
	// ErrConflict marks duplicate membership, self-targeting admin actions and
	// exhausted optimistic-concurrency retries.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks a non-admin invoking an admin-only operation.
	ErrUnauthorized = errors.New("not authorized")
	// ErrExternal marks a failed store or storage call.
	ErrExternal = errors.New("external service failure")
)

// Error is a classified, human-readable error.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Is reports whether target is the sentinel this error was classified as.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Message returns the message without the wrapped cause.
func (e *Error) Message() string {
	return e.msg
}

func newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error   { return newf(ErrValidation, format, args...) }
func NotFoundf(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func Conflictf(format string, args ...any) error     { return newf(ErrConflict, format, args...) }
func Unauthorizedf(format string, args ...any) error { return newf(ErrUnauthorized, format, args...) }

// External wraps a failed collaborator call, keeping the underlying message.
func External(err error, format string, args ...any) error {
	return &Error{kind: ErrExternal, msg: fmt.Sprintf(format, args...), cause: err}
}

// Conflict wraps err as a conflict, so callers can match both ErrConflict and err.
func Conflict(err error, format string, args ...any) error {
	return &Error{kind: ErrConflict, msg: fmt.Sprintf(format, args...), cause: err}
}
