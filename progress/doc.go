// Package progress merges byte progress from concurrent workers into one
// monotonic (completed, total) pair reported to a Sink.
//
// An Aggregator owns one Slot per worker plus one for the coordinator. Slots
// report absolute per-job input counts, which makes them directly usable as a
// compress.Progress; the aggregator credits only the positive delta since the
// slot's last report. The value passed to Sink.SetCompleted never decreases
// and never exceeds the total.
package progress
