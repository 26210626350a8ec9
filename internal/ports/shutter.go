package ports

import "context"

// Shutter is a mechanical shutter in front of the sensor.
type Shutter interface {
	// Open opens the shutter and returns once it is fully open.
	Open(ctx context.Context) error

	// Close closes the shutter and returns once it is fully closed.
	Close(ctx context.Context) error
}
