// Package testutil provides shared helpers for engine tests.
package testutil

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
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

// DBPath returns a store file path inside a fresh temp directory.
func DBPath(t testing.TB, name string) string {
	t.Helper()
	if name == "" {
		name = "test"
	}
	return filepath.Join(t.TempDir(), name+".db")
}

// Context returns a context cancelled when the test ends or after 30s.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
