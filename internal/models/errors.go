package models

import (
	"errors"
	"fmt"
)

// ValidationError represents an invariant violation at construction time
// (empty agent ID, out-of-range confidence, unset timestamp). These are
// fatal for the record being built and are never silently coerced.
type ValidationError struct {
	message string
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		message: fmt.Sprintf(format, args...),
	}
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return e.message
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StateError is returned when a mutation is attempted on a hypothesis in
// a terminal state. It is an expected race in concurrent short-circuit
// paths; callers may check status first or ignore this error.
type StateError struct {
	HypothesisID string
	Status       HypothesisStatus
	Operation    string
}

// Error returns the error message
func (e *StateError) Error() string {
	return fmt.Sprintf("hypothesis %s is %s: %s not permitted", e.HypothesisID, e.Status, e.Operation)
}

// IsStateError checks if an error is a terminal-state mutation error
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
