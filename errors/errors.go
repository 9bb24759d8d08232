// Package errors provides error handling for pmcal.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for user-correctable failures
//   - Marks, so a store failure can carry the retryable classification
//
// Usage:
//
//	// Wrap with context
//	if err := store.UpdateClient(ctx, c); err != nil {
//	    return errors.Wrap(err, "failed to update client")
//	}
//
//	// Classify a store failure without losing its cause
//	return errors.MarkTransactionFailure(err)
//
//	// Check errors
//	if errors.Is(err, errors.ErrDuplicateAssignment) {
//	    // surface as a user-correctable input error
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors shared across the engine.
// Use these with errors.Is(); wrap them to add context while preserving the type.
var (
	// ErrNotFound indicates a referenced client, assignment, series or work order is absent
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed (bad month, bad phase, ...)
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates a generic resource conflict
	ErrConflict = New("resource conflict")

	// ErrDuplicateAssignment indicates an assignment already exists for (tenant, client, year, month)
	ErrDuplicateAssignment = New("duplicate calendar assignment")

	// ErrInvalidTransition indicates an illegal work-order status change
	ErrInvalidTransition = New("invalid status transition")

	// ErrTransactionFailure indicates the store aborted a multi-record operation.
	// Nothing from the operation was retained, so it is always safe to retry.
	ErrTransactionFailure = New("transaction failure")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsDuplicateAssignment checks if an error is or wraps ErrDuplicateAssignment
func IsDuplicateAssignment(err error) bool {
	return err != nil && Is(err, ErrDuplicateAssignment)
}

// IsInvalidTransition checks if an error is or wraps ErrInvalidTransition
func IsInvalidTransition(err error) bool {
	return err != nil && Is(err, ErrInvalidTransition)
}

// IsTransactionFailure checks if an error carries the ErrTransactionFailure mark
func IsTransactionFailure(err error) bool {
	return err != nil && Is(err, ErrTransactionFailure)
}

// IsUserError reports whether err is something the caller should surface as
// correctable input rather than retry.
func IsUserError(err error) bool {
	return IsAny(err, ErrDuplicateAssignment, ErrInvalidTransition, ErrInvalidRequest, ErrNotFound)
}

// MarkTransactionFailure classifies a store-level failure as retryable.
// Domain errors pass through untouched so callers still see NotFound,
// DuplicateAssignment and InvalidTransition for what they are.
func MarkTransactionFailure(err error) error {
	if err == nil || IsUserError(err) || IsTransactionFailure(err) {
		return err
	}
	return Mark(err, ErrTransactionFailure)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}

// NewDuplicateAssignmentError reports an occupied (client, year, month) slot
func NewDuplicateAssignmentError(clientID string, year, month int) error {
	return WithHintf(
		Wrapf(ErrDuplicateAssignment, "client %s already has an assignment for %04d-%02d", clientID, year, month),
		"update the existing assignment instead of creating a new one",
	)
}

// NewInvalidTransitionError reports a rejected status change
func NewInvalidTransitionError(from, to string) error {
	return Wrapf(ErrInvalidTransition, "cannot move work order from %q to %q", from, to)
}
