// Package testutil provides common helpers for handler, service, and
// integration tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

// Given, When, and Then helpers keep test descriptions readable without
// pulling in a heavy BDD framework.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

// DiscardLogger returns a logger that drops everything. Use in tests that
// exercise code requiring a logger but not its output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FixedClock returns a clock function pinned to t, for stores and services
// accepting an injectable clock.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
