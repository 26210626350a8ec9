package ports

import "time"

// FeatureSet is the engine's string-keyed feature surface (GenICam node map).
type FeatureSet interface {
	Int(name string) (int64, error)
	SetInt(name string, v int64) error
	Float(name string) (float64, error)
	SetFloat(name string, v float64) error
	String(name string) (string, error)
	SetString(name, v string) error
	RunCommand(name string) error
	CommandDone(name string) (bool, error)
}

// AcquisitionMode selects how many frames one acquisition start produces.
type AcquisitionMode int

const (
	AcquisitionSingleFrame AcquisitionMode = iota
	AcquisitionMultiFrame
	AcquisitionContinuous
)

// String returns the GenICam enumeration entry for the mode.
func (m AcquisitionMode) String() string {
	switch m {
	case AcquisitionSingleFrame:
		return "SingleFrame"
	case AcquisitionMultiFrame:
		return "MultiFrame"
	case AcquisitionContinuous:
		return "Continuous"
	default:
		return "Unknown"
	}
}

// Controls is the typed capability set the capture core needs from a device.
// It keeps feature names and units out of the application layer.
type Controls interface {
	// PayloadSize returns the number of bytes one frame needs.
	PayloadSize() (int64, error)

	// SetPayloadSize requests a payload size. Most devices derive it from the
	// image geometry and refuse the write.
	SetPayloadSize(size int64) error

	// SetPacketSize sets the GigE stream packet size in bytes.
	SetPacketSize(size int64) error

	// AdjustPacketSize lets the device negotiate the largest working packet size.
	AdjustPacketSize() error

	// SetStreamBandwidth limits the stream to bytesPerSecond.
	SetStreamBandwidth(bytesPerSecond int64) error

	SetAcquisitionMode(mode AcquisitionMode) error
	SetExposure(d time.Duration) error
	AcquisitionStart() error
	AcquisitionStop() error
}

// NetworkParams are the stream parameters negotiated by Configure.
// Zero values leave the device setting untouched.
type NetworkParams struct {
	// PacketSize is the GigE stream packet size in bytes.
	PacketSize int64

	// AdjustPacketSize asks the device to find the largest working packet size.
	// Applied before PacketSize.
	AdjustPacketSize bool

	// StreamBytesPerSecond caps the stream bandwidth.
	StreamBytesPerSecond int64
}
