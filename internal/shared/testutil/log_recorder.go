package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is a single record captured by a test logger.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is an slog.Handler that keeps records in memory so tests
// can assert on what a component logged. Handlers derived with With
// share the parent's store, so one recorder sees the whole tree.
type LogRecorder struct {
	mu      *sync.Mutex
	records *[]LogRecord
	base    []slog.Attr
	t       *testing.T
}

// NewLogRecorder returns an empty recorder. Records are echoed through
// t.Logf when t is non-nil.
func NewLogRecorder(t *testing.T) *LogRecorder {
	return &LogRecorder{
		mu:      &sync.Mutex{},
		records: &[]LogRecord{},
		t:       t,
	}
}

// NewTestLogger returns a logger wired to a fresh recorder.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogRecorder) {
	recorder := NewLogRecorder(t)
	return slog.New(recorder), recorder
}

// Enabled implements slog.Handler. Tests capture every level.
func (h *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.base))
	for _, a := range h.base {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. The child keeps writing to the
// parent's store.
func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *h
	child.base = append(append([]slog.Attr{}, h.base...), attrs...)
	return &child
}

// WithGroup implements slog.Handler. Groups are flattened so tests can
// assert on leaf keys directly.
func (h *LogRecorder) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything captured so far.
func (h *LogRecorder) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogRecord, len(*h.records))
	copy(out, *h.records)
	return out
}

// ByLevel returns the captured records at the given level.
func (h *LogRecorder) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// HasMessage reports whether any captured message contains substr.
func (h *LogRecorder) HasMessage(substr string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// HasAttr reports whether any captured record carries the attribute.
func (h *LogRecorder) HasAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if got, ok := r.Attrs[key]; ok && got == value {
			return true
		}
	}
	return false
}

// Reset discards everything captured so far.
func (h *LogRecorder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = (*h.records)[:0]
}

// AssertLogged fails the test when no record at the level contains message.
func AssertLogged(t *testing.T, recorder *LogRecorder, level slog.Level, message string) {
	t.Helper()
	records := recorder.ByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("expected %s log containing %q", level, message)
	for _, r := range records {
		t.Logf("captured: %s", r.Message)
	}
}

// AssertNoErrors fails the test when any error-level record was captured.
func AssertNoErrors(t *testing.T, recorder *LogRecorder) {
	t.Helper()
	for _, r := range recorder.ByLevel(slog.LevelError) {
		t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
