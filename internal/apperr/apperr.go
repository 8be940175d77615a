// Package apperr defines the error kinds shared across classtrack operations.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced roll, course code, or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation (duplicate roll or course code).
	ErrConflict = errors.New("already exists")
	// ErrValidation indicates malformed input reaching an operation.
	ErrValidation = errors.New("invalid input")
	// ErrStorage indicates an unexpected storage-layer failure.
	ErrStorage = errors.New("storage failure")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage wraps an unexpected storage error, keeping the cause in the chain
// so the command boundary can still classify driver-level constraint errors.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
