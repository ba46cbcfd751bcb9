package update

import (
	"fmt"

	"github.com/arloliu/mezip/archive"
)

// Report describes a completed run.
type Report struct {
	// Entries are the written entries in archive order.
	Entries []archive.Entry
	// Failures lists the items skipped because their source was unavailable.
	Failures []Failure
	Skipped  int

	Multithreaded bool
	FileThreads   int
	CodecThreads  int

	// Reordered counts items that finished before their turn and were replayed from buffers.
	Reordered int
	// BlockCapacity and PeakBlocks describe the buffer pool of a multithreaded run.
	BlockCapacity int
	PeakBlocks    int
}

// RunError is returned when a run aborts. It carries the failures recorded
// before the fatal error; errors.Is and errors.As see the fatal cause.
type RunError struct {
	Failures []Failure
	Err      error
}

func (e *RunError) Error() string {
	if len(e.Failures) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("%v (%d items skipped before the failure)", e.Err, len(e.Failures))
}

func (e *RunError) Unwrap() error {
	return e.Err
}
