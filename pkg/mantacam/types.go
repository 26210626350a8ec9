package mantacam

import (
	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// Re-export types from internal packages for convenient access.
type (
	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField is a structured log field.
	LogField = ports.Field

	// System is a capture engine: device enumeration, open and hotplug.
	System = ports.System

	// FeatureSet is the string-keyed feature surface of an opened device.
	FeatureSet = ports.FeatureSet

	// Controls is the typed view of the features the pipeline drives.
	Controls = ports.Controls

	// Shutter is a mechanical shutter in front of the sensor.
	Shutter = ports.Shutter

	// NetworkParams are the stream parameters applied on Connect.
	NetworkParams = ports.NetworkParams

	// Device describes a reachable camera.
	Device = domain.Device

	// Frame is one delivered image.
	Frame = domain.Frame

	// PixelFormat is the pixel layout of a frame.
	PixelFormat = domain.PixelFormat

	// EngineError is an error reported by the capture engine.
	EngineError = domain.EngineError
)

// Errors returned by Camera operations, matchable with errors.Is.
var (
	ErrDeviceNotFound        = domain.ErrDeviceNotFound
	ErrAccessDenied          = domain.ErrAccessDenied
	ErrConfigurationRejected = domain.ErrConfigurationRejected
	ErrEngineStartFailed     = domain.ErrEngineStartFailed
	ErrEngineRejected        = domain.ErrEngineRejected
	ErrBufferStillAnnounced  = domain.ErrBufferStillAnnounced
	ErrExposureInProgress    = domain.ErrExposureInProgress
	ErrExposureTimeout       = domain.ErrExposureTimeout
	ErrSessionStopped        = domain.ErrSessionStopped
	ErrInvalidArgument       = domain.ErrInvalidArgument
	ErrInvalidState          = domain.ErrInvalidState
)
