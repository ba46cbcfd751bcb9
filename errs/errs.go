// Package errs defines the sentinel errors returned by mezip packages.
//
// Callers classify failures with errors.Is; every error produced by the
// update pipeline wraps exactly one of the taxonomy sentinels below.
package errs

import "errors"

// Update pipeline taxonomy.
var (
	// ErrSourceUnavailable is reported when the content source cannot open an item.
	// It is the only class that does not abort a run.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrCodecFailure wraps a failed compress call of a worker.
	ErrCodecFailure = errors.New("codec failure")
	// ErrPoolExhausted is returned when the memory block reservation cannot be made.
	ErrPoolExhausted = errors.New("memory block pool exhausted")
	// ErrCancelled is returned when the run is cancelled between items.
	ErrCancelled = errors.New("update cancelled")
	// ErrUnsupportedOperation is returned for operations the writer refuses to perform.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// Record and directory parsing.
var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidSignature   = errors.New("invalid record signature")
	ErrDirectoryNotFound  = errors.New("end of central directory not found")
	ErrInvalidExtraField  = errors.New("invalid extra field")
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
)

// Configuration and item validation.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidSourceIndex = errors.New("invalid source index")
	ErrDuplicateName      = errors.New("duplicate entry name")
	ErrInvalidName        = errors.New("invalid entry name")
	ErrUnknownMethod      = errors.New("unknown compression method")
)

// Writer and sink state.
var (
	ErrSinkAborted         = errors.New("output sink aborted")
	ErrPlaceholderMismatch = errors.New("header does not fit reserved placeholder")
	ErrWriterState         = errors.New("archive writer in wrong state")
)
