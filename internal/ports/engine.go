package ports

import "github.com/bft-labs/mantacam/internal/domain"

// AccessMode is the access level requested when opening a device.
type AccessMode int

const (
	AccessNone AccessMode = iota
	// AccessFull grants exclusive read/write access, required for capture.
	AccessFull
	AccessRead
	AccessConfig
	AccessLite
)

// String returns a human-readable representation of the access mode.
func (m AccessMode) String() string {
	switch m {
	case AccessNone:
		return "None"
	case AccessFull:
		return "Full"
	case AccessRead:
		return "Read"
	case AccessConfig:
		return "Config"
	case AccessLite:
		return "Lite"
	default:
		return "Unknown"
	}
}

// DeviceListObserver receives device-list change notifications.
// It is invoked on a goroutine owned by the engine and must not block.
type DeviceListObserver func(device domain.Device, trigger domain.Trigger)

// FrameHandler receives completed buffers from the capture engine.
// It is invoked on the engine's delivery goroutine and must not block.
type FrameHandler func(buf *domain.FrameBuffer)

// System is the vendor engine entry point.
// Startup and shutdown of the underlying SDK are owned by the implementation.
type System interface {
	// Devices enumerates the currently reachable cameras.
	Devices() ([]domain.Device, error)

	// OpenDevice opens the camera with the given id.
	// Returns an *domain.EngineError with ErrorNotFound when no such camera
	// is enumerated and ErrorInvalidAccess when the access mode cannot be granted.
	OpenDevice(id string, mode AccessMode) (Device, error)

	// RegisterDeviceListObserver installs the device-list change observer.
	// Only one observer is supported; registering replaces the previous one.
	RegisterDeviceListObserver(obs DeviceListObserver) error

	// UnregisterDeviceListObserver removes the observer.
	UnregisterDeviceListObserver() error
}

// Device is an opened camera handle.
//
// Buffer protocol: AnnounceBuffer registers memory with the engine,
// QueueBuffer hands a registered buffer over for filling (valid only between
// StartCapture and EndCapture), FlushQueue returns every queued buffer that
// was not delivered, RevokeAllBuffers unregisters all memory.
type Device interface {
	// ID returns the identifier the device was opened with.
	ID() string

	// Features returns the device's feature surface.
	Features() FeatureSet

	AnnounceBuffer(buf *domain.FrameBuffer) error
	RevokeAllBuffers() error
	QueueBuffer(buf *domain.FrameBuffer) error

	// FlushQueue cancels all queued buffers and returns them to the caller.
	// Must be called after EndCapture.
	FlushQueue() ([]*domain.FrameBuffer, error)

	StartCapture() error

	// EndCapture stops the capture engine. On return the delivery handler is
	// no longer running and will not be invoked again.
	EndCapture() error

	// SetFrameHandler installs the delivery handler. nil removes it.
	SetFrameHandler(h FrameHandler)

	Close() error
}
