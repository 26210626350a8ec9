package mantacam

import (
	"fmt"
	"time"
)

// DefaultExposureTimeoutMargin is added to the exposure duration to get
// the time Expose waits for delivery.
const DefaultExposureTimeoutMargin = 2 * time.Second

// Config holds the configuration for a Camera.
type Config struct {
	// DeviceID is the camera to auto-connect to.
	DeviceID string

	// AutoConnect connects to DeviceID whenever it is plugged in.
	AutoConnect bool

	// PoolSize is the number of frame buffers. Zero means 3.
	PoolSize int

	// PayloadSize is the frame size to request. Zero keeps the camera's own.
	PayloadSize int64

	// Network is applied before the payload size on every Connect.
	Network NetworkParams

	// ExposureTimeoutMargin bounds the wait for delivery beyond the
	// exposure duration.
	ExposureTimeoutMargin time.Duration
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.ExposureTimeoutMargin == 0 {
		c.ExposureTimeoutMargin = DefaultExposureTimeoutMargin
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.AutoConnect && c.DeviceID == "" {
		return fmt.Errorf("%w: auto-connect needs a device id", ErrInvalidArgument)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("%w: pool size %d", ErrInvalidArgument, c.PoolSize)
	}
	if c.PayloadSize < 0 || c.Network.PacketSize < 0 || c.Network.StreamBytesPerSecond < 0 {
		return fmt.Errorf("%w: negative stream parameter", ErrInvalidArgument)
	}
	if c.ExposureTimeoutMargin <= 0 {
		return fmt.Errorf("%w: exposure timeout margin %v", ErrInvalidArgument, c.ExposureTimeoutMargin)
	}
	return nil
}
