// Package errors provides the small set of domain error categories shared by every
// module. Use cases wrap these sentinels with context; HTTP handlers map the
// sentinel back to a status code without inspecting the message.
package errors

import (
	"errors"
	"fmt"
)

// Domain error categories.
var (
	// ErrNotFound covers absent, expired and already consumed records alike.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a write collided with existing data (e.g., duplicate id).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a request was malformed or out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTooManyRequests indicates the caller exceeded a rate limit.
	ErrTooManyRequests = errors.New("too many requests")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap adds context to err while keeping it matchable with Is.
// It returns nil when err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
