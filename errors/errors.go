package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrInvalidInput indicates the request failed validation (missing
	// patient id, query too short) before any retrieval was attempted
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller could not be resolved to an identity
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDatabaseOperation indicates a record store operation failed
	ErrDatabaseOperation = errors.New("database operation failed")

	// ErrGenerationTimeout indicates the generation backend did not answer in time
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrRateLimited indicates the generation backend rejected the call
	// because of rate limits or exhausted quota
	ErrRateLimited = errors.New("generation rate limited")

	// ErrServiceUnavailable indicates the generation backend is temporarily down
	ErrServiceUnavailable = errors.New("generation service unavailable")

	// ErrEmptyAnswer indicates the generation backend produced empty or
	// too-short output for a well-formed request
	ErrEmptyAnswer = errors.New("empty or too short answer")

	// ErrGeneration indicates a non-retryable generation failure
	ErrGeneration = errors.New("generation failed")
)

// WrapError wraps an error with context message
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsInvalidInput checks if error is a validation error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsEmptyAnswer checks if error is an empty/short answer error
func IsEmptyAnswer(err error) bool {
	return errors.Is(err, ErrEmptyAnswer)
}

// IsTransient reports whether a generation failure is expected to resolve
// on retry: timeouts, rate limits, upstream unavailability and transiently
// empty output. Anything else is treated as fatal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGenerationTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrEmptyAnswer)
}
