package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrNotFound is returned when a job id does not resolve to a record.
	ErrNotFound = errors.New("not found")

	// ErrRetryConflict is returned when retry is requested for a job that is
	// not in the failed state.
	ErrRetryConflict = errors.New("job is not in a retryable state")

	// ErrScanTimeout is raised by the poll driver after the attempt budget is
	// exhausted without a completion or failure signal.
	ErrScanTimeout = errors.New("scan polling timed out")

	// ErrScanFailed is raised when a provider reports a recognized failure
	// signal for a submitted scan.
	ErrScanFailed = errors.New("scan failed")
)

// ValidationError rejects bad input before a job is created. It is surfaced
// to the caller immediately and never reaches the pipeline.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// SkipError signals that a provider precondition (size ceiling, file-type
// allow-list) is violated and the provider must be skipped, not failed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skipf builds a SkipError from a format string.
func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// MandatoryProviderError marks a failure of the mandatory provider, which
// aborts the whole job.
type MandatoryProviderError struct {
	Provider Provider
	Err      error
}

func (e *MandatoryProviderError) Error() string {
	return fmt.Sprintf("mandatory provider %s: %v", e.Provider, e.Err)
}

func (e *MandatoryProviderError) Unwrap() error { return e.Err }
