package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the handler and level of the process logger.
type Options struct {
	Level string
	JSON  bool
}

// New builds a slog.Logger writing to stdout and installs it as the default.
func New(opts Options) *slog.Logger {
	return newWithWriter(os.Stdout, opts)
}

func newWithWriter(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
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
