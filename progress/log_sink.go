package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogSink is a Sink that writes throttled progress events to a zerolog logger.
//
// A report is logged when the interval has elapsed since the previous one,
// when the percentage grew by at least ten points, or on completion.
type LogSink struct {
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	total       uint64
	start       time.Time
	lastLogged  time.Time
	lastPercent float64
	lastBytes   uint64
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a LogSink logging at most once per interval.
func NewLogSink(logger zerolog.Logger, interval time.Duration) *LogSink {
	return &LogSink{
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// SetTotal implements Sink.
func (s *LogSink) SetTotal(total uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = total
	s.start = s.now()
	s.lastLogged = s.start
	s.lastPercent = 0
	s.lastBytes = 0

	s.logger.Info().Str("total", formatSize(total)).Msg("Update started")

	return nil
}

// SetCompleted implements Sink.
func (s *LogSink) SetCompleted(completed uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	percent := 100.0
	if s.total > 0 {
		percent = float64(completed) / float64(s.total) * 100
	}

	now := s.now()
	finished := completed >= s.total
	if !finished && now.Sub(s.lastLogged) < s.interval && percent-s.lastPercent < 10 {
		return nil
	}

	elapsed := now.Sub(s.lastLogged).Seconds()
	var rate uint64
	if elapsed > 0 && completed > s.lastBytes {
		rate = uint64(float64(completed-s.lastBytes) / elapsed)
	}

	event := s.logger.Info()
	if finished {
		event = event.Dur("elapsed", now.Sub(s.start))
	}
	event.
		Str("done", formatSize(completed)).
		Str("total", formatSize(s.total)).
		Str("percent", fmt.Sprintf("%.1f%%", percent)).
		Str("rate", formatRate(rate)).
		Msg("Update progress")

	s.lastLogged = now
	s.lastPercent = percent
	s.lastBytes = completed

	return nil
}

// formatSize returns a human-readable size string
func formatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatRate returns a human-readable rate string
func formatRate(bytesPerSec uint64) string {
	return formatSize(bytesPerSec) + "/s"
}
