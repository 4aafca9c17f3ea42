/*
errors.go - Centralized error types for the tontine engine

PURPOSE:
  All engine failures are one of three kinds, matched with errors.Is():

    ErrNotFound        referenced entity absent
    ErrConflict        uniqueness or state violation (duplicate enrollment,
                       duplicate beneficiary, existing active credit,
                       illegal status transition)
    ErrInvalidArgument malformed input (parts < 1, non-positive amount)

  Structured errors carry entity context and unwrap to the sentinel, so
  callers can either match the kind or inspect the details.

  The HTTP layer maps NotFound -> 404, Conflict -> 409,
  InvalidArgument -> 400. The engine only ever signals the kind.

SEE ALSO:
  - store.go: stores return the same kinds (constraint violations
    surface as ErrConflict)
*/
package tontine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on uniqueness or state violations.
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument is returned on malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "member", "tontine", "session", ...
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError describes a uniqueness or state violation.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidArgumentError describes a malformed input field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool        { return errors.Is(err, ErrConflict) }
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsClientError reports whether the failure is due to the caller's input
// rather than the system.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsInvalidArgument(err)
}

func notFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func invalidArg(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}
