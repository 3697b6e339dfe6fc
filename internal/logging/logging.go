// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/forest6511/deskvault/internal/config"
)

// New returns a logger writing to w at level. The text format is rendered
// by charmbracelet/log; json uses the standard JSON handler.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: true,
		Prefix:          "deskvault",
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
