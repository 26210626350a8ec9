package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/mantacam/internal/ports"
)

// ShutterConfig describes how the shutter line is wired.
type ShutterConfig struct {
	// Pin is the BCM number of the shutter control line.
	Pin int

	// ActiveLow drives the line low to open the shutter.
	ActiveLow bool

	// Settle is the time the blades need to finish moving.
	Settle time.Duration
}

// Shutter implements ports.Shutter on one GPIO output line.
// The line rests at the closed level.
type Shutter struct {
	gpio   Driver
	cfg    ShutterConfig
	logger ports.Logger
}

// NewShutter configures the pin as output and closes the shutter.
func NewShutter(d Driver, cfg ShutterConfig, logger ports.Logger) (*Shutter, error) {
	if cfg.Pin < 0 {
		return nil, fmt.Errorf("invalid shutter pin %d", cfg.Pin)
	}
	if cfg.Settle < 0 {
		return nil, fmt.Errorf("negative shutter settle time %v", cfg.Settle)
	}

	s := &Shutter{gpio: d, cfg: cfg, logger: logger}
	if err := d.SetupPin(cfg.Pin, Output); err != nil {
		return nil, fmt.Errorf("setup shutter pin %d: %w", cfg.Pin, err)
	}
	if err := d.WritePin(cfg.Pin, s.level(false)); err != nil {
		return nil, fmt.Errorf("close shutter: %w", err)
	}
	return s, nil
}

func (s *Shutter) level(open bool) Level {
	// open XOR active-low
	return Level(open != s.cfg.ActiveLow)
}

// Open opens the shutter and waits for it to settle.
func (s *Shutter) Open(ctx context.Context) error {
	return s.move(ctx, true)
}

// Close closes the shutter and waits for it to settle.
func (s *Shutter) Close(ctx context.Context) error {
	return s.move(ctx, false)
}

func (s *Shutter) move(ctx context.Context, open bool) error {
	state := "closed"
	if open {
		state = "open"
	}
	if err := s.gpio.WritePin(s.cfg.Pin, s.level(open)); err != nil {
		return fmt.Errorf("shutter %s: %w", state, err)
	}
	s.logger.Debug("shutter moved",
		ports.String("state", state),
		ports.Int("pin", s.cfg.Pin),
	)

	if s.cfg.Settle <= 0 {
		return nil
	}
	timer := time.NewTimer(s.cfg.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ ports.Shutter = (*Shutter)(nil)
