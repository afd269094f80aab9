package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// TeeHandler duplicates log records to two slog handlers, typically a
// terminal handler and a run log file handler.
//
// Design decision: We use a handler rather than an io.MultiWriter because
// the two destinations want different levels: the terminal shows warnings
// unless verbose, while the file always keeps the full debug trail. A
// MultiWriter would force both to share one level.
type TeeHandler struct {
	// primary is the terminal-facing handler.
	primary slog.Handler

	// secondary is the run log file handler. May be nil, in which case the
	// TeeHandler degenerates to the primary handler.
	secondary slog.Handler
}

// NewTeeHandler creates a TeeHandler over the given handlers.
// secondary may be nil.
func NewTeeHandler(primary, secondary slog.Handler) *TeeHandler {
	if primary == nil {
		primary = slog.Default().Handler()
	}
	return &TeeHandler{primary: primary, secondary: secondary}
}

// Enabled reports whether either handler handles records at the given level.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	return h.secondary != nil && h.secondary.Enabled(ctx, level)
}

// Handle passes the record to every handler enabled for its level.
// Errors from both handlers are joined so neither destination can silently
// swallow the other's failure.
func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error

	if h.primary.Enabled(ctx, r.Level) {
		if err := h.primary.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	if h.secondary != nil && h.secondary.Enabled(ctx, r.Level) {
		if err := h.secondary.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// WithAttrs returns a new handler with the given attributes added to both
// destinations.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	tee := &TeeHandler{primary: h.primary.WithAttrs(attrs)}
	if h.secondary != nil {
		tee.secondary = h.secondary.WithAttrs(attrs)
	}
	return tee
}

// WithGroup returns a new handler with the given group name applied to both
// destinations.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	tee := &TeeHandler{primary: h.primary.WithGroup(name)}
	if h.secondary != nil {
		tee.secondary = h.secondary.WithGroup(name)
	}
	return tee
}

// NewRunLogger creates a logger writing to terminal and, when logFile is
// non-empty, to a run log file that records every level. The terminal level
// is warn, or debug when verbose is true.
//
// The returned io.Closer closes the run log file and is a no-op closer when
// no file was requested.
func NewRunLogger(terminal io.Writer, logFile string, verbose bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	primary := slog.NewTextHandler(terminal, &slog.HandlerOptions{Level: level})

	if logFile == "" {
		return slog.New(primary), nopCloser{}, nil
	}

	dir := filepath.Dir(logFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, err
		}
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // User-provided log path is intentional
	if err != nil {
		return nil, nil, err
	}

	secondary := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewTeeHandler(primary, secondary)), f, nil
}

// nopCloser is the closer returned when no run log file is in use.
type nopCloser struct{}

// Close implements io.Closer.
func (nopCloser) Close() error { return nil }
