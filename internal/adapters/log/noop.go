package log

import "github.com/bft-labs/mantacam/internal/ports"

// NoopLogger is the logger a Camera uses when none is configured. The
// capture path logs from the engine's delivery goroutine, so the silent
// default must cost nothing there.
type NoopLogger struct{}

// NewNoopLogger returns a logger that drops everything.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(string, ...ports.Field) {}
func (NoopLogger) Info(string, ...ports.Field)  {}
func (NoopLogger) Warn(string, ...ports.Field)  {}
func (NoopLogger) Error(string, ...ports.Field) {}

var _ ports.Logger = NoopLogger{}
