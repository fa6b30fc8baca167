// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package respool

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discard drops every record. Enabled reports false, so disabled log calls
// return before their attributes are formatted.
type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }

// silent is the logger in effect until SetLogger is called.
var silent = slog.New(discard{})

// current holds the logger shared by respool, tempalloc and resource.
var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(silent)
}

// SetLogger sets the logger used by respool and its sub-packages. Nothing
// is logged until it is called; SetLogger(nil) turns logging off again.
// It may be called while a frame loop is running.
//
// Levels:
//   - [slog.LevelDebug]: per-frame bookkeeping such as pool growth, cleanup
//     counts and temporary upload flushes
//   - [slog.LevelInfo]: manager creation and shutdown
//   - [slog.LevelWarn]: backend creation failures, exceeded memory budgets
//     and failed waits during Close
//
// To see everything on stderr:
//
//	respool.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the logger set with SetLogger, or a logger that discards
// everything. It never returns nil.
func Logger() *slog.Logger {
	return current.Load()
}
