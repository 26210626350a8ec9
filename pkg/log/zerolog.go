package log

import (
	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/mantacam/internal/adapters/log"
)

// NewZerologLogger returns a Logger writing through logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(logger)
}

// NewConsoleLogger returns a Logger writing human-readable lines to stderr.
func NewConsoleLogger() Logger {
	return logAdapter.NewZerologAdapter()
}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return logAdapter.NewNoopLogger()
}
