package update

import (
	"context"
	"io"
	"time"
)

// Item is one input unit of an update: a new file, a reused entry or an
// entry whose properties changed. Items are immutable during a run.
type Item struct {
	// NewData is set when the content comes from the Source.
	NewData bool
	// NewProperties is set when Name, Attributes and Modified come from the item
	// instead of the prior entry.
	NewProperties bool
	// SourceIndex is the index into the prior archive entries, or -1.
	SourceIndex int

	Name       string
	Size       uint64
	Attributes uint32
	Modified   time.Time
	IsDir      bool
}

// Outcome is the per-item result reported back to the Source.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}

	return "ok"
}

// Source provides the content of items with new data.
//
// In multithreaded mode calls are serialized under the progress lock, so an
// implementation does not need to be reentrant.
type Source interface {
	// GetStream opens the content of items[index]. An error wrapping
	// errs.ErrSourceUnavailable skips the item; any other error aborts the run.
	GetStream(ctx context.Context, index int, item *Item) (io.ReadCloser, error)

	// ReportResult is called once per item with new data after it was
	// written or skipped.
	// An error aborts the run.
	ReportResult(index int, item *Item, outcome Outcome) error
}

// Failure records an item that was skipped because its source was unavailable.
type Failure struct {
	Index int
	Name  string
	Err   error
}
