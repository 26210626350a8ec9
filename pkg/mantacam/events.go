package mantacam

import "github.com/bft-labs/mantacam/internal/app"

// State is the state of a Camera's capture session.
type State int

const (
	// StateDisconnected means no device is open.
	StateDisconnected State = iota

	// StateOpening means a device is being opened.
	StateOpening

	// StateConfigured means the device is open and idle.
	StateConfigured

	// StateCapturing means the capture engine runs and Expose may be called.
	StateCapturing

	// StateStopping means the capture engine is being drained.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateOpening:
		return "Opening"
	case StateConfigured:
		return "Configured"
	case StateCapturing:
		return "Capturing"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// StateChangeEvent describes a session state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives camera notifications.
//
// OnCameraConnected and OnCameraDisconnected run on the Camera's event
// worker. OnStateChange runs synchronously on the goroutine that changed
// the state. Implementations should return quickly.
type EventHandler interface {
	// OnCameraConnected is called when a camera appears on the network.
	OnCameraConnected(deviceID string)

	// OnCameraDisconnected is called when a camera disappears.
	OnCameraDisconnected(deviceID string)

	// OnStateChange is called on every session state transition.
	OnStateChange(event StateChangeEvent)
}

// BaseEventHandler implements EventHandler with no-ops, for embedding.
type BaseEventHandler struct{}

func (BaseEventHandler) OnCameraConnected(string)       {}
func (BaseEventHandler) OnCameraDisconnected(string)    {}
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateOpening:
		return StateOpening
	case app.StateConfigured:
		return StateConfigured
	case app.StateCapturing:
		return StateCapturing
	case app.StateStopping:
		return StateStopping
	default:
		return StateDisconnected
	}
}
