package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions of the capture pipeline.
// They are returned by the public API and can be checked with errors.Is.
var (
	// ErrDeviceNotFound is returned when no enumerated device has the requested id.
	ErrDeviceNotFound = errors.New("mantacam: device not found")

	// ErrAccessDenied is returned when exclusive access to a device cannot be obtained.
	ErrAccessDenied = errors.New("mantacam: access denied")

	// ErrConfigurationRejected is returned when the device refuses a parameter.
	ErrConfigurationRejected = errors.New("mantacam: configuration rejected")

	// ErrEngineStartFailed is returned when the capture engine cannot be armed.
	ErrEngineStartFailed = errors.New("mantacam: capture engine start failed")

	// ErrEngineRejected is returned when the engine refuses a buffer.
	ErrEngineRejected = errors.New("mantacam: buffer rejected by engine")

	// ErrBufferStillAnnounced is returned when buffers are released while the
	// engine still holds one of them. It indicates a teardown ordering bug.
	ErrBufferStillAnnounced = errors.New("mantacam: buffer still announced")

	// ErrExposureInProgress is returned when an exposure is requested while
	// another one is in flight or its frame has not been consumed.
	ErrExposureInProgress = errors.New("mantacam: exposure in progress")

	// ErrExposureTimeout is returned when no frame arrives before the timeout.
	ErrExposureTimeout = errors.New("mantacam: exposure timeout")

	// ErrSessionStopped is returned to a pending exposure when capture stops.
	ErrSessionStopped = errors.New("mantacam: session stopped")

	// ErrInvalidArgument is returned for out-of-range arguments.
	ErrInvalidArgument = errors.New("mantacam: invalid argument")

	// ErrInvalidState is returned when an operation is not valid in the current state.
	ErrInvalidState = errors.New("mantacam: invalid state")
)

// ErrorCode is the status code reported by the vendor capture engine.
type ErrorCode int

const (
	ErrorSuccess        ErrorCode = 0
	ErrorInternalFault  ErrorCode = -1
	ErrorAPINotStarted  ErrorCode = -2
	ErrorNotFound       ErrorCode = -3
	ErrorBadHandle      ErrorCode = -4
	ErrorDeviceNotOpen  ErrorCode = -5
	ErrorInvalidAccess  ErrorCode = -6
	ErrorBadParameter   ErrorCode = -7
	ErrorStructSize     ErrorCode = -8
	ErrorMoreData       ErrorCode = -9
	ErrorWrongType      ErrorCode = -10
	ErrorInvalidValue   ErrorCode = -11
	ErrorTimeout        ErrorCode = -12
	ErrorOther          ErrorCode = -13
	ErrorResources      ErrorCode = -14
	ErrorInvalidCall    ErrorCode = -15
	ErrorNoTL           ErrorCode = -16
	ErrorNotImplemented ErrorCode = -17
	ErrorNotSupported   ErrorCode = -18
	ErrorIncomplete     ErrorCode = -19
)

var errorCodeNames = map[ErrorCode]string{
	ErrorSuccess:        "success",
	ErrorInternalFault:  "internal fault",
	ErrorAPINotStarted:  "api not started",
	ErrorNotFound:       "not found",
	ErrorBadHandle:      "bad handle",
	ErrorDeviceNotOpen:  "device not open",
	ErrorInvalidAccess:  "invalid access",
	ErrorBadParameter:   "bad parameter",
	ErrorStructSize:     "struct size",
	ErrorMoreData:       "more data",
	ErrorWrongType:      "wrong type",
	ErrorInvalidValue:   "invalid value",
	ErrorTimeout:        "timeout",
	ErrorOther:          "other",
	ErrorResources:      "resources",
	ErrorInvalidCall:    "invalid call",
	ErrorNoTL:           "no transport layer",
	ErrorNotImplemented: "not implemented",
	ErrorNotSupported:   "not supported",
	ErrorIncomplete:     "incomplete",
}

// String returns a human-readable representation of the code.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code %d", int(c))
}

// EngineError is a failure reported by the vendor capture engine.
type EngineError struct {
	// Op is the engine call that failed (e.g. "OpenDevice", "SetInt PayloadSize").
	Op   string
	Code ErrorCode
}

// NewEngineError creates an EngineError for op with the given code.
func NewEngineError(op string, code ErrorCode) *EngineError {
	return &EngineError{Op: op, Code: code}
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Code)
}

// EngineCode extracts the engine error code from err.
// Returns ErrorOther and false if err does not wrap an EngineError.
func EngineCode(err error) (ErrorCode, bool) {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Code, true
	}
	return ErrorOther, false
}
