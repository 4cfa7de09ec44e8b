// Package testutil provides helpers shared by the navtrack tests.
package testutil

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger creates a debug-level text logger writing to w.
// If w is nil, output is discarded.
func NewTestLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// DiscardLogger returns a logger that discards all output
func DiscardLogger() *slog.Logger {
	return NewTestLogger(nil)
}

// TLogger returns a logger that writes through t.Log, so records only
// show up for failing or verbose tests.
func TLogger(t testing.TB) *slog.Logger {
	return NewTestLogger(tWriter{t: t})
}

type tWriter struct {
	t testing.TB
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
