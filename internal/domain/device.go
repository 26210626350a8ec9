package domain

// Device describes a camera as reported by the vendor enumeration.
type Device struct {
	// ID is the stable identifier used to open the device (serial or network id).
	ID string

	// Name is the user-facing device name.
	Name string

	// Model is the camera model (e.g. "Manta G-125B").
	Model string

	// SerialNumber is the factory serial number.
	SerialNumber string

	// InterfaceID identifies the network interface the camera was found on.
	InterfaceID string
}

// Trigger is the reason reported with a device-list change notification.
type Trigger int

const (
	// TriggerPluggedIn: a new camera was discovered.
	TriggerPluggedIn Trigger = iota
	// TriggerPluggedOut: a camera disappeared from the bus.
	TriggerPluggedOut
	// TriggerOpenStateChanged: the possible opening mode of a camera changed.
	TriggerOpenStateChanged
)

// String returns a human-readable representation of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerPluggedIn:
		return "PluggedIn"
	case TriggerPluggedOut:
		return "PluggedOut"
	case TriggerOpenStateChanged:
		return "OpenStateChanged"
	default:
		return "Unknown"
	}
}

// ListEventKind classifies a device-list change.
type ListEventKind int

const (
	Connected ListEventKind = iota
	Disconnected
)

// String returns a human-readable representation of the kind.
func (k ListEventKind) String() string {
	switch k {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// CameraListEvent is a device-list change classified as connect or disconnect.
type CameraListEvent struct {
	Kind     ListEventKind
	DeviceID string
}
