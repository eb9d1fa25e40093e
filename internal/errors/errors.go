// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the resource is not in a state that allows the requested transition.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthFailed indicates a second-factor check failed. Use AuthFailedError to carry
	// the remaining attempt count.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrForbidden indicates the authenticated user doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrLocked indicates the resource refuses further attempts until an administrator unlocks it.
	ErrLocked = errors.New("locked")

	// ErrGone indicates the resource existed but is expired or exhausted.
	ErrGone = errors.New("gone")

	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = errors.New("rate limited")
)

// AuthFailedError reports a failed second-factor attempt together with the number of
// attempts left before the resource locks.
type AuthFailedError struct {
	RemainingAttempts int
}

// Error implements the error interface.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("%s: %d attempt(s) remaining", ErrAuthFailed.Error(), e.RemainingAttempts)
}

// Unwrap allows errors.Is(err, ErrAuthFailed).
func (e *AuthFailedError) Unwrap() error {
	return ErrAuthFailed
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Kind returns the stable machine-readable kind of err. Unknown errors are "internal".
func Kind(err error) string {
	var authFailed *AuthFailedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authFailed), errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrGone):
		return "gone"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
