package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogEntry is one captured log record. Attributes are flattened to the
// [key1, value1, key2, value2, ...] form the attrs helpers read.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   []any
}

// LogRecorder collects log records for assertions. Safe for use from
// handlers and background workers logging concurrently.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogRecorder returns a logger whose records land in the returned
// recorder instead of a writer.
func NewLogRecorder() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{}
	return slog.New(&recordingHandler{rec: rec}), rec
}

// Entries returns a copy of everything recorded so far.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns the first entry with the given message.
func (r *LogRecorder) Find(message string) (LogEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Message == message {
			return e, true
		}
	}
	return LogEntry{}, false
}

func (r *LogRecorder) add(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// recordingHandler adapts a LogRecorder to slog.Handler. WithAttrs carries
// bound attributes into every subsequent record; groups are flattened.
type recordingHandler struct {
	rec   *LogRecorder
	bound []any
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	list := make([]any, 0, len(h.bound)+2*record.NumAttrs())
	list = append(list, h.bound...)
	record.Attrs(func(a slog.Attr) bool {
		list = append(list, a.Key, a.Value.Resolve().Any())
		return true
	})
	h.rec.add(LogEntry{Level: record.Level, Message: record.Message, Attrs: list})
	return nil
}

func (h *recordingHandler) WithAttrs(as []slog.Attr) slog.Handler {
	bound := make([]any, 0, len(h.bound)+2*len(as))
	bound = append(bound, h.bound...)
	for _, a := range as {
		bound = append(bound, a.Key, a.Value.Resolve().Any())
	}
	return &recordingHandler{rec: h.rec, bound: bound}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
