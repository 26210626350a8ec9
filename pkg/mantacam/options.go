package mantacam

import (
	"github.com/bft-labs/mantacam/internal/adapters/genicam"
	logAdapter "github.com/bft-labs/mantacam/internal/adapters/log"
	"github.com/bft-labs/mantacam/internal/ports"
)

// Option configures optional behavior of a Camera.
type Option func(*options)

// options holds the optional configuration for a Camera instance.
type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	shutter      ports.Shutter
	controls     func(ports.FeatureSet) ports.Controls
}

func defaultOptions() options {
	return options{
		logger:   logAdapter.NewNoopLogger(),
		controls: genicam.Factory(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for camera events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithShutter installs a mechanical shutter used by Expose.
func WithShutter(shutter Shutter) Option {
	return func(o *options) {
		o.shutter = shutter
	}
}

// WithControls replaces the GenICam feature mapping, for cameras whose
// firmware names features differently.
func WithControls(factory func(FeatureSet) Controls) Option {
	return func(o *options) {
		if factory != nil {
			o.controls = factory
		}
	}
}
