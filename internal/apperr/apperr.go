// Package apperr defines the error kinds shared by the catalog services.
//
// Every service operation fails with one of:
//   - *ValidationError: input rejected before any store call
//   - *StoreError: the record store failed or affected zero rows
//   - ErrAuthRequired: the operation needs a signed-in user
//
// The HTTP layer maps them to status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

// ErrAuthRequired is returned when an operation needs a current user.
var ErrAuthRequired = errors.New("authentication required")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation creates a ValidationError for a field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreError reports a failed or ineffective record store operation.
// ZeroRows is set when the operation succeeded but matched no rows, which is
// either a missing record or a policy denial.
type StoreError struct {
	Op       string
	Message  string
	ZeroRows bool
	Err      error
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps an underlying store failure.
func Store(op string, err error) *StoreError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &StoreError{Op: op, Message: msg, Err: err}
}

// ZeroRows reports an operation that affected no rows.
func ZeroRows(op, message string) *StoreError {
	return &StoreError{Op: op, Message: message, ZeroRows: true}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsZeroRows reports whether err is a StoreError for a zero-row outcome.
func IsZeroRows(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.ZeroRows
}
