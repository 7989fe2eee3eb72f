// Package errors defines the error taxonomy shared by the service and HTTP layers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = stderrors.New("not found")

// ValidationError reports a request that failed shape checks. It is always
// produced before any store access.
type ValidationError struct {
	Message string
	Fields  []string
}

// NewValidationError creates a validation error naming the offending fields.
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// StoreError wraps a failure of the underlying data store.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a StoreError. Nil and ErrNotFound pass through
// unchanged so callers can keep matching on them.
func NewStoreError(op string, err error) error {
	if err == nil || stderrors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// AsValidation extracts a ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if stderrors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsStore reports whether err is or wraps a StoreError.
func IsStore(err error) bool {
	var s *StoreError
	return stderrors.As(err, &s)
}
