package progress

import (
	"fmt"
	"sync"
)

// Sink receives the merged progress. Calls are serialized by the Aggregator.
//
// An error returned by the sink aborts the operation that caused the report.
type Sink interface {
	SetTotal(total uint64) error
	SetCompleted(completed uint64) error
}

// Nop is a Sink that discards every report.
type Nop struct{}

func (Nop) SetTotal(uint64) error     { return nil }
func (Nop) SetCompleted(uint64) error { return nil }

// Aggregator merges per-slot progress under one mutex.
type Aggregator struct {
	mu        sync.Mutex
	sink      Sink
	total     uint64
	credited  uint64 // raw sum of all credits, may exceed total
	reported  uint64 // last value passed to the sink
	slotsLast []uint64
	slots     []*Slot
}

// NewAggregator creates an aggregator with the given number of slots.
//
// Parameters:
//   - sink: Receiver of merged reports, nil discards them
//   - slots: Number of slots, at least 1
func NewAggregator(sink Sink, slots int) *Aggregator {
	if sink == nil {
		sink = Nop{}
	}
	if slots < 1 {
		slots = 1
	}

	a := &Aggregator{
		sink:      sink,
		slotsLast: make([]uint64, slots),
		slots:     make([]*Slot, slots),
	}
	for i := range a.slots {
		a.slots[i] = &Slot{agg: a, index: i}
	}

	return a
}

// SetTotal records the total work and reports it to the sink.
func (a *Aggregator) SetTotal(total uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = total

	return a.sink.SetTotal(total)
}

// Slot returns the slot with index i.
func (a *Aggregator) Slot(i int) *Slot {
	return a.slots[i]
}

// Slots returns the number of slots.
func (a *Aggregator) Slots() int {
	return len(a.slots)
}

// Add credits n bytes directly, outside of any slot job.
func (a *Aggregator) Add(n uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.creditLocked(n)
}

// Completed returns the value last reported to the sink.
func (a *Aggregator) Completed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.reported
}

// Total returns the total set by SetTotal.
func (a *Aggregator) Total() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.total
}

// Finish raises the completed value to the total.
func (a *Aggregator) Finish() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reported >= a.total {
		return nil
	}
	a.reported = a.total

	return a.sink.SetCompleted(a.reported)
}

// Locked runs fn while holding the aggregator mutex.
//
// Item source calls go through it in multithreaded mode, so sources that are
// not reentrant never run concurrently with a progress report. fn must not
// call back into the aggregator.
func (a *Aggregator) Locked(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return fn()
}

func (a *Aggregator) creditLocked(n uint64) error {
	a.credited += n

	visible := min(a.credited, a.total)
	if visible <= a.reported {
		return nil
	}
	a.reported = visible

	if err := a.sink.SetCompleted(visible); err != nil {
		return fmt.Errorf("progress sink: %w", err)
	}

	return nil
}

// Slot is the private progress handle of one worker.
//
// It implements compress.Progress. A slot is used by one goroutine at a time.
type Slot struct {
	agg   *Aggregator
	index int
}

// Index returns the slot index.
func (s *Slot) Index() int {
	return s.index
}

// Reset starts a new job: the next absolute report counts from zero.
func (s *Slot) Reset() {
	s.agg.mu.Lock()
	s.agg.slotsLast[s.index] = 0
	s.agg.mu.Unlock()
}

// SetRatio reports the absolute input count of the current job.
//
// Only the growth since the previous report is credited; a smaller value is ignored.
func (s *Slot) SetRatio(inSize, _ uint64) error {
	a := s.agg
	a.mu.Lock()
	defer a.mu.Unlock()

	last := a.slotsLast[s.index]
	if inSize <= last {
		return nil
	}
	a.slotsLast[s.index] = inSize

	return a.creditLocked(inSize - last)
}
