package returns

import (
	"errors"
	"fmt"
)

// Standard domain errors.
var (
	ErrNotFound           = errors.New("order not found")
	ErrMalformedPayload   = errors.New("malformed upstream payload")
	ErrGuardViolation     = errors.New("action not allowed in current state")
	ErrSubmissionInFlight = errors.New("return submission already in progress")
)

// GenericSubmissionMessage is shown when the upstream gave no error detail.
const GenericSubmissionMessage = "Could not initiate return."

// GuardError wraps ErrGuardViolation with the unmet precondition.
func GuardError(msg string) error {
	return fmt.Errorf("%w: %s", ErrGuardViolation, msg)
}

// SubmissionError is a failed initiate-return call. The flow stays usable.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("initiate return failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("initiate return failed: %s", e.Message)
}

// Unwrap returns the underlying upstream error.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Field names of the degradable parts of an OrderView.
const (
	FieldItems       = "items"
	FieldEligibility = "eligibility"
	FieldOptions     = "options"
)

// DegradedFieldError records a secondary resource that was replaced by its default.
type DegradedFieldError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *DegradedFieldError) Error() string {
	return fmt.Sprintf("%s degraded to default: %v", e.Field, e.Err)
}

// Unwrap returns the cause.
func (e *DegradedFieldError) Unwrap() error {
	return e.Err
}
