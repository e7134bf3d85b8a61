// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package terrain

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/terrain/internal/compute"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for terrain and all its sub-packages.
// By default, terrain produces no log output.
//
// Pass nil to restore the silent default.
//
// Log levels used by terrain:
//   - [slog.LevelDebug]: pipeline state, pass chain changes, bind groups
//   - [slog.LevelInfo]: lifecycle events (adapter selected, resources allocated)
//   - [slog.LevelWarn]: non-fatal issues (shader compilation failed, reload rejected)
//
// Example:
//
//	terrain.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	compute.SetLogger(l)
}

// Logger returns the current logger used by terrain.
// Sub-packages (display, internal/watch) call this to share the same
// logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
