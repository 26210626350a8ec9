package cliconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return l, nil
}

// Logger returns the process logger for the configured level and format.
// Validate must have accepted the config.
func (c Config) Logger() zerolog.Logger {
	return NewLogger(os.Stderr, c.LogLevel, c.LogFormat)
}

// NewLogger builds a zerolog logger writing to w. Format "json" writes one
// JSON object per line, anything else uses the human console writer.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	l, err := parseLevel(level)
	if err != nil {
		l = zerolog.InfoLevel
	}
	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(l).With().Timestamp().Logger()
}
