// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimitExceeded indicates the per-session LLM quota was exhausted.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyUtterance indicates an utterance with no content after trimming.
	ErrEmptyUtterance = errors.New("empty utterance")

	// ErrMissingParameter indicates a template was run without a declared parameter.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrUnknownTemplate indicates a template name that is not registered.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrNoReference indicates a reference expression could not be resolved
	// against the most recent result set.
	ErrNoReference = errors.New("reference not resolvable")

	// ErrPreviewOutstanding indicates a new preview was started while another
	// one is still awaiting a decision.
	ErrPreviewOutstanding = errors.New("preview already pending")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimitExceeded checks if an error is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsMissingParameter checks if an error is or wraps ErrMissingParameter.
func IsMissingParameter(err error) bool {
	return errors.Is(err, ErrMissingParameter)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
