package app

import (
	"sync"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// DeviceWatcher translates engine device-list notifications into
// connect/disconnect callbacks.
//
// Callbacks run synchronously on the engine's notification goroutine and
// must not block; consumers that need to do work should hand off to their
// own goroutine.
type DeviceWatcher struct {
	mu             sync.RWMutex
	onConnected    func(deviceID string)
	onDisconnected func(deviceID string)
	logger         ports.Logger
}

// NewDeviceWatcher creates a watcher with no callbacks installed.
func NewDeviceWatcher(logger ports.Logger) *DeviceWatcher {
	return &DeviceWatcher{logger: logger}
}

// OnConnected installs the callback for newly plugged-in cameras.
func (w *DeviceWatcher) OnConnected(fn func(deviceID string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onConnected = fn
}

// OnDisconnected installs the callback for unplugged cameras.
func (w *DeviceWatcher) OnDisconnected(fn func(deviceID string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDisconnected = fn
}

// Attach registers the watcher as the system's device-list observer.
func (w *DeviceWatcher) Attach(system ports.System) error {
	return system.RegisterDeviceListObserver(w.OnListChanged)
}

// Detach removes the watcher from system.
func (w *DeviceWatcher) Detach(system ports.System) error {
	return system.UnregisterDeviceListObserver()
}

// OnListChanged is the ports.DeviceListObserver entry point.
func (w *DeviceWatcher) OnListChanged(device domain.Device, trigger domain.Trigger) {
	event, ok := ClassifyListChange(device.ID, trigger)
	if !ok {
		w.logger.Debug("ignoring device list change",
			ports.String("device_id", device.ID),
			ports.String("trigger", trigger.String()),
		)
		return
	}

	w.mu.RLock()
	fn := w.onConnected
	if event.Kind == domain.Disconnected {
		fn = w.onDisconnected
	}
	w.mu.RUnlock()

	w.logger.Info("camera list changed",
		ports.String("device_id", event.DeviceID),
		ports.String("event", event.Kind.String()),
	)

	if fn != nil {
		fn(event.DeviceID)
	}
}

// ClassifyListChange maps an engine trigger to a camera list event.
// Triggers other than plug-in and plug-out produce no event.
func ClassifyListChange(deviceID string, trigger domain.Trigger) (domain.CameraListEvent, bool) {
	switch trigger {
	case domain.TriggerPluggedIn:
		return domain.CameraListEvent{Kind: domain.Connected, DeviceID: deviceID}, true
	case domain.TriggerPluggedOut:
		return domain.CameraListEvent{Kind: domain.Disconnected, DeviceID: deviceID}, true
	default:
		return domain.CameraListEvent{}, false
	}
}
