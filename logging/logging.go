// Package logging builds the process logger. Output always goes to the
// writer handed in (stderr in the binary) since stdout carries the game
// protocol.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New returns a logger for level ("debug", "info", "warn", "error") and
// format ("text", "json", "pretty").
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "pretty":
		h = NewPrettyHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(h), nil
}
