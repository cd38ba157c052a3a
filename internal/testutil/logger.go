// Package testutil provides test utilities for structured logging.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Record is a captured log entry.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// RecordingHandler keeps every record it handles, at any level, so tests can
// assert on diagnostics.
type RecordingHandler struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

// NewRecordingLogger returns a logger backed by a RecordingHandler.
func NewRecordingLogger() (*slog.Logger, *RecordingHandler) {
	h := &RecordingHandler{mu: &sync.Mutex{}, records: &[]Record{}}
	return slog.New(h), h
}

// Enabled implements slog.Handler.
func (h *RecordingHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *RecordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := Record{Level: r.Level, Message: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, rec)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RecordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RecordingHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *RecordingHandler) WithGroup(string) slog.Handler { return h }

// Records returns the captured records at exactly level.
func (h *RecordingHandler) Records(level slog.Level) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Record
	for _, r := range *h.records {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// All returns every captured record.
func (h *RecordingHandler) All() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Record(nil), *h.records...)
}
