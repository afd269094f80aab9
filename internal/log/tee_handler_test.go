package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestTeeHandlerDuplicatesRecords tests that records reach both handlers.
func TestTeeHandlerDuplicatesRecords(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := NewTeeHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h)

	logger.Info("downloaded", "file", "DEMO_J.XPT")
	logger.Debug("skipping existing file", "file", "BPX_J.XPT")

	if !strings.Contains(a.String(), "downloaded") {
		t.Error("primary handler missing info record")
	}
	if strings.Contains(a.String(), "skipping") {
		t.Error("primary handler received debug record below its level")
	}
	if !strings.Contains(b.String(), "downloaded") || !strings.Contains(b.String(), "skipping") {
		t.Error("secondary handler should receive all records")
	}
}

// TestTeeHandlerWithAttrs tests attribute propagation to both handlers.
func TestTeeHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := NewTeeHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "Dietary")}))
	logger.Info("run started")

	for name, buf := range map[string]*bytes.Buffer{"primary": &a, "secondary": &b} {
		if !strings.Contains(buf.String(), "component=Dietary") {
			t.Errorf("%s handler missing attached attribute", name)
		}
	}
}

// TestTeeHandlerNilSecondary tests that a nil secondary handler is tolerated.
func TestTeeHandlerNilSecondary(t *testing.T) {
	t.Parallel()

	var a bytes.Buffer
	h := NewTeeHandler(slog.NewTextHandler(&a, nil), nil)

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be enabled")
	}

	slog.New(h).Info("hello")
	if !strings.Contains(a.String(), "hello") {
		t.Error("primary handler missing record")
	}
}

// TestNewRunLogger tests run log file creation and duplication.
func TestNewRunLogger(t *testing.T) {
	t.Parallel()

	t.Run("writes to run log file", func(t *testing.T) {
		t.Parallel()

		var terminal bytes.Buffer
		logFile := filepath.Join(t.TempDir(), "logs", "fetch.log")

		logger, closer, err := NewRunLogger(&terminal, logFile, false)
		if err != nil {
			t.Fatalf("NewRunLogger() error = %v", err)
		}

		logger.Debug("detail only for the file")
		logger.Warn("shown everywhere")

		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		data, err := os.ReadFile(logFile) //nolint:gosec // Test-owned path
		if err != nil {
			t.Fatalf("reading run log: %v", err)
		}

		if !strings.Contains(string(data), "detail only for the file") {
			t.Error("run log missing debug record")
		}
		if strings.Contains(terminal.String(), "detail only for the file") {
			t.Error("terminal received debug record without verbose")
		}
		if !strings.Contains(terminal.String(), "shown everywhere") {
			t.Error("terminal missing warn record")
		}
	})

	t.Run("no log file requested", func(t *testing.T) {
		t.Parallel()

		var terminal bytes.Buffer
		logger, closer, err := NewRunLogger(&terminal, "", true)
		if err != nil {
			t.Fatalf("NewRunLogger() error = %v", err)
		}
		defer closer.Close()

		logger.Debug("verbose terminal record")
		if !strings.Contains(terminal.String(), "verbose terminal record") {
			t.Error("terminal missing debug record in verbose mode")
		}
	})
}
