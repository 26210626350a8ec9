// Package gpio drives a mechanical shutter over Raspberry Pi GPIO lines.
package gpio

import (
	"sync"

	"github.com/bft-labs/mantacam/internal/ports"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// String returns "high" or "low".
func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool, logger ports.Logger) (Driver, error) {
	if mock {
		logger.Info("using mock GPIO driver")
		return NewMockDriver(logger), nil
	}
	d, err := NewRPiDriver(logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// MockDriver keeps pin levels in memory and logs every access.
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
	logger ports.Logger
}

// NewMockDriver creates a mock driver.
func NewMockDriver(logger ports.Logger) *MockDriver {
	return &MockDriver{levels: make(map[int]Level), logger: logger}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	m.logger.Debug("gpio setup", ports.Int("pin", pin), ports.Int("mode", int(mode)))
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = level
	m.logger.Debug("gpio write", ports.Int("pin", pin), ports.String("level", level.String()))
	return nil
}

// ReadPin returns the last level written to pin.
func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin], nil
}

func (m *MockDriver) Close() error {
	m.logger.Debug("gpio close (mock)")
	return nil
}
