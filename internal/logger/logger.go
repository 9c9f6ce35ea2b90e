// Package logger provides structured logging setup for handoffd.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/config"
)

const asyncWorkers = 2

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record and
// request/handoff ids taken from the context. The Closer flushes the async
// handler when cfg.Async is set and is a no-op otherwise.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	var closer Closer = nopCloser{}
	if cfg.Async {
		buf := cfg.AsyncBuffer
		if buf <= 0 {
			buf = 10000
		}
		ah := NewAsyncHandler(h, buf, asyncWorkers)
		h, closer = ah, ah
	}

	// Context values are read on the caller's goroutine, before any async hop.
	h = &contextHandler{inner: h}

	return slog.New(h).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
