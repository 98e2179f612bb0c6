package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Process exit statuses. Every fatal condition of a run maps to 1; there is
// no partial-success status.
const (
	ExitSuccess       = 0
	ExitErrorGeneric  = 1
	ExitErrorConfig   = 1 // bad arguments, reported with the usage line
	ExitErrorCanceled = 130
)

// ConfigError reports a missing or malformed command-line argument, flag or
// environment override.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError formats a ConfigError.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// IOError reports that the input file could not be opened or read.
type IOError struct {
	// Path is the file that failed.
	Path string
	// Cause is the underlying error from the operating system.
	Cause error
}

// Error returns a formatted message naming the path and the cause.
func (e IOError) Error() string {
	return fmt.Sprintf("could not read input file %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e IOError) Unwrap() error { return e.Cause }

// AllocationError reports that a buffer could not be sized or allocated.
type AllocationError struct {
	// What names the buffer being allocated (e.g. "line arena").
	What string
	// Size is the requested size in bytes or elements, 0 when unknown.
	Size uint64
	// Cause is an optional underlying error (e.g. a recovered runtime panic).
	Cause error
}

// Error returns a formatted message describing the failed allocation.
func (e AllocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("allocation failed for %s (%d): %v", e.What, e.Size, e.Cause)
	}
	return fmt.Sprintf("allocation failed for %s (%d)", e.What, e.Size)
}

// Unwrap returns the underlying cause, if any.
func (e AllocationError) Unwrap() error { return e.Cause }

// WorkerStartError reports that fewer workers started than were requested.
// Started is the authoritative count used for waiting and collecting.
type WorkerStartError struct {
	Requested int
	Started   int
	Cause     error
}

// Error returns a formatted message with both counts.
func (e WorkerStartError) Error() string {
	return fmt.Sprintf("started %d of %d workers: %v", e.Started, e.Requested, e.Cause)
}

// Unwrap returns the error of the first worker that failed to start.
func (e WorkerStartError) Unwrap() error { return e.Cause }

// CollectiveError reports a failed broadcast, gather or handshake between
// cooperating processes. Rank is -1 when the failure is not tied to one peer.
type CollectiveError struct {
	Op    string
	Rank  int
	Cause error
}

// Error returns a formatted message naming the collective operation.
func (e CollectiveError) Error() string {
	if e.Rank < 0 {
		return fmt.Sprintf("collective %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("collective %s failed at rank %d: %v", e.Op, e.Rank, e.Cause)
}

// Unwrap returns the transport error.
func (e CollectiveError) Unwrap() error { return e.Cause }

// WrapError prefixes err with a formatted context message, keeping it
// reachable through errors.Is and errors.As. A nil err stays nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsContextError reports whether err stems from a canceled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	case errors.As(err, new(ConfigError)):
		return ExitErrorConfig
	default:
		return ExitErrorGeneric
	}
}

// HandleError writes a one-line "ERROR:" report to w and returns the exit code
// for err. A nil error writes nothing.
func HandleError(err error, w io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(w, "ERROR: %v\n", err)
	return ExitCode(err)
}
