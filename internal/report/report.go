// Package report carries progress and per-item failures out of the pipeline
// without stopping it.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives failures that are handled locally, such as a skipped section
// or column. Implementations must be safe for concurrent use.
type Sink interface {
	Report(level slog.Level, msg string, args ...any)
}

// Progress is called with the number of columns finished so far and the
// expected total. done never decreases between calls.
type Progress func(done, total int64)

// LogSink writes reports to a slog.Logger.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink returns a Sink backed by log.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Report(level slog.Level, msg string, args ...any) {
	s.log.Log(context.Background(), level, msg, args...)
}

// Discard drops every report.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(slog.Level, string, ...any) {}

// Entry is one recorded report.
type Entry struct {
	Level slog.Level
	Msg   string
	Args  []any
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s %v", e.Level, e.Msg, e.Args)
}

// Recorder keeps every report in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Report(level slog.Level, msg string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Args: args})
}

// Entries returns a copy of the recorded reports.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns the number of reports at or above level.
func (r *Recorder) Count(level slog.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level >= level {
			n++
		}
	}
	return n
}

// LogProgress returns a Progress that logs every step-th column and the last one.
func LogProgress(log *slog.Logger, step int64) Progress {
	if step < 1 {
		step = 1
	}
	return func(done, total int64) {
		if done%step != 0 && done != total {
			return
		}
		pct := 100.0
		if total > 0 {
			pct = float64(done) * 100 / float64(total)
		}
		log.Info("progress", "columns", done, "total", total, "percent", fmt.Sprintf("%.1f", pct))
	}
}
