package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
	ErrNotRatable            = errors.New("only completed analyses can be rated")
)

const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeInvalidInput = "INVALID_INPUT"
	ErrorCodeModel        = "MODEL_UNAVAILABLE"
	ErrorCodeState        = "INVALID_STATE"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

// InvalidInputError reports a precondition failure on caller-supplied input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// ValidationError reports a model response that does not match the expected schema.
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s response validation failed: %s", e.Stage, e.Reason)
}

// ModelUnavailableError reports retry exhaustion against the model backend.
type ModelUnavailableError struct {
	Attempts int
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// TranslationError wraps a stage failure from the translation pipeline.
type TranslationError struct {
	Stage string
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation %s stage: %v", e.Stage, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// InvalidStateError reports a status transition that violates the job lifecycle.
type InvalidStateError struct {
	Current string
	Next    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.Current, e.Next)
}
