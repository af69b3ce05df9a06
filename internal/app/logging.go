package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger: text records on w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
