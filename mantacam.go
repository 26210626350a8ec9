// Package mantacam captures single frames from GigE Vision cameras.
//
// Example usage:
//
//	cam, err := mantacam.New(system, mantacam.Config{DeviceID: "DEV-01", AutoConnect: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cam.Close()
//	frame, err := cam.Expose(ctx, 10*time.Millisecond, false)
//
// The implementation lives in github.com/bft-labs/mantacam/pkg/mantacam;
// this package re-exports it.
package mantacam

import "github.com/bft-labs/mantacam/pkg/mantacam"

// Camera is a single camera driven through a capture engine.
type Camera = mantacam.Camera

// Config holds the configuration for a Camera.
type Config = mantacam.Config

// Option configures optional behavior of a Camera.
type Option = mantacam.Option

// Frame is one delivered image.
type Frame = mantacam.Frame

// EventHandler receives camera notifications.
type EventHandler = mantacam.EventHandler

// New creates a Camera on system.
func New(system mantacam.System, cfg Config, opts ...Option) (*Camera, error) {
	return mantacam.New(system, cfg, opts...)
}

// WithLogger sets a custom logger for structured logging.
func WithLogger(logger mantacam.Logger) Option {
	return mantacam.WithLogger(logger)
}

// WithEventHandler sets a handler for camera events.
func WithEventHandler(handler EventHandler) Option {
	return mantacam.WithEventHandler(handler)
}

// WithShutter installs a mechanical shutter used by Expose.
func WithShutter(shutter mantacam.Shutter) Option {
	return mantacam.WithShutter(shutter)
}

// DefaultExposureTimeoutMargin is added to the exposure duration to get
// the time Expose waits for delivery.
const DefaultExposureTimeoutMargin = mantacam.DefaultExposureTimeoutMargin
