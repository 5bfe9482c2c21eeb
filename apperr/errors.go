// Package apperr defines the error kinds surfaced by the user store.
// Callers classify failures with errors.Is against the Err* sentinels or
// with the Is* helpers, and map them to their own presentation.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skryldev/userstore/db"
)

// ─────────────────────────────────────────────────────────────────────────────
// Kinds
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrInvalidArgument marks a failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a lookup that matched no user.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks an acting identity that does not own the target.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict marks a unique-constraint violation.
	ErrConflict = errors.New("conflict")

	// ErrInternal marks an I/O, driver or transaction failure.
	ErrInternal = errors.New("internal error")
)

func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool    { return errors.Is(err, ErrUnauthorized) }
func IsConflict(err error) bool        { return errors.Is(err, ErrConflict) }
func IsInternal(err error) bool        { return errors.Is(err, ErrInternal) }

// IsTimeout reports whether err is an Internal failure caused by a deadline
// or cancellation.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Timeout
}

// ─────────────────────────────────────────────────────────────────────────────
// Error
// ─────────────────────────────────────────────────────────────────────────────

// Error is a tagged failure. Kind is one of the package-level Err* values.
type Error struct {
	Kind    error
	Op      string
	Message string
	Cause   error
	// Timeout is set on Internal errors produced by an aborted statement.
	Timeout bool
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.Cause != nil:
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool { return e.Kind == target }
func (e *Error) Unwrap() error        { return e.Cause }

// KindOf returns the kind of err, ErrInternal for untagged errors and nil
// for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternal
}

// ─────────────────────────────────────────────────────────────────────────────
// Constructors
// ─────────────────────────────────────────────────────────────────────────────

func InvalidArgument(op, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(op, format string, args ...any) *Error {
	return &Error{Kind: ErrUnauthorized, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Conflict(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Internal wraps a lower-level failure. Deadline and cancellation causes set
// the Timeout flag.
func Internal(op string, cause error) *Error {
	return &Error{
		Kind:    ErrInternal,
		Op:      op,
		Cause:   cause,
		Timeout: db.IsTimeout(cause) || errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled),
	}
}

// FromDB translates an error returned by the db package. Errors that are
// already tagged pass through unchanged.
func FromDB(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case db.IsNotFound(err):
		return &Error{Kind: ErrNotFound, Op: op, Cause: err}
	case db.IsDuplicateKey(err):
		return Conflict(op, err, "email already in use")
	default:
		return Internal(op, err)
	}
}
