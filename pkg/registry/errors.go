package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested environment or cookbook
// version does not exist.
var ErrNotFound = errors.New("not found")

// UnavailableError reports that the inventory or the environment pins
// could not be fetched. A run cannot make any decision without both, so
// callers treat it as fatal.
type UnavailableError struct {
	// Operation is the load that failed ("inventory" or "pins").
	Operation string

	// Source identifies the backend (server URL, file path, repository).
	Source string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("registry unavailable [operation=%s, source=%s]: %v", e.Operation, e.Source, e.Cause)
	}
	return fmt.Sprintf("registry unavailable [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(operation, source string, cause error) *UnavailableError {
	return &UnavailableError{
		Operation: operation,
		Source:    source,
		Cause:     cause,
	}
}

// DeletionError reports a failed delete of a single cookbook version.
type DeletionError struct {
	Cookbook string
	Version  string
	Cause    error
}

// Error implements the error interface.
func (e *DeletionError) Error() string {
	return fmt.Sprintf("failed to delete %s version %s: %v", e.Cookbook, e.Version, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DeletionError) Unwrap() error {
	return e.Cause
}

// NewDeletionError creates a new DeletionError.
func NewDeletionError(cookbook, version string, cause error) *DeletionError {
	return &DeletionError{
		Cookbook: cookbook,
		Version:  version,
		Cause:    cause,
	}
}

// StatusError is an unexpected HTTP status returned by a registry backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Retryable reports whether the status indicates a transient server error.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
