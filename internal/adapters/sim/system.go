// Package sim is an in-process capture engine emulating a GigE Vision camera
// system: enumeration, hotplug notifications, exclusive open, a GenICam
// feature map and a delivery goroutine that fills queued buffers.
package sim

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

const (
	defaultWidth         = 64
	defaultHeight        = 64
	defaultMaxPacketSize = 8228
	minPacketSize        = 576
)

// Sensor describes the emulated sensor behind a device.
type Sensor struct {
	Width  int
	Height int
	Format domain.PixelFormat

	// MaxPacketSize is the largest stream packet the link accepts.
	MaxPacketSize int64

	// Latency is the readout delay between the end of the exposure and the
	// delivery of the frame. Acquisition stop does not cancel a readout.
	Latency time.Duration
}

// DefaultSensor returns a small Mono8 sensor.
func DefaultSensor() Sensor {
	return Sensor{
		Width:         defaultWidth,
		Height:        defaultHeight,
		Format:        domain.PixelFormatMono8,
		MaxPacketSize: defaultMaxPacketSize,
	}
}

// Validate checks the sensor geometry.
func (s Sensor) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: sensor %dx%d", domain.ErrInvalidArgument, s.Width, s.Height)
	}
	if s.Format.BitsPerPixel() == 0 {
		return fmt.Errorf("%w: sensor pixel format %s", domain.ErrInvalidArgument, s.Format)
	}
	if s.MaxPacketSize != 0 && s.MaxPacketSize < minPacketSize {
		return fmt.Errorf("%w: max packet size %d", domain.ErrInvalidArgument, s.MaxPacketSize)
	}
	if s.Latency < 0 {
		return fmt.Errorf("%w: negative latency", domain.ErrInvalidArgument)
	}
	return nil
}

// CameraSpec is one emulated camera.
type CameraSpec struct {
	Device domain.Device
	Sensor Sensor
}

// System implements ports.System.
type System struct {
	mu       sync.Mutex
	cameras  map[string]CameraSpec
	opened   map[string]*Device
	observer ports.DeviceListObserver
	logger   ports.Logger
}

// NewSystem creates an empty camera system.
func NewSystem(logger ports.Logger) *System {
	return &System{
		cameras: make(map[string]CameraSpec),
		opened:  make(map[string]*Device),
		logger:  logger,
	}
}

// Plug adds a camera and notifies the observer. Plugging an id that is
// already present replaces its description without a notification.
func (s *System) Plug(spec CameraSpec) error {
	if spec.Device.ID == "" {
		return fmt.Errorf("%w: empty device id", domain.ErrInvalidArgument)
	}
	if spec.Sensor.MaxPacketSize == 0 {
		spec.Sensor.MaxPacketSize = defaultMaxPacketSize
	}
	if err := spec.Sensor.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.cameras[spec.Device.ID]
	s.cameras[spec.Device.ID] = spec
	obs := s.observer
	s.mu.Unlock()

	if existed {
		s.logger.Debug("camera description updated", ports.String("device_id", spec.Device.ID))
		return nil
	}

	s.logger.Info("camera plugged in",
		ports.String("device_id", spec.Device.ID),
		ports.String("model", spec.Device.Model),
	)
	if obs != nil {
		obs(spec.Device, domain.TriggerPluggedIn)
	}
	return nil
}

// Unplug removes a camera. An open device loses its link: capture ends and
// further commands fail. It reports whether the camera was present.
func (s *System) Unplug(id string) bool {
	s.mu.Lock()
	spec, ok := s.cameras[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.cameras, id)
	dev := s.opened[id]
	obs := s.observer
	s.mu.Unlock()

	if dev != nil {
		dev.linkLost()
	}

	s.logger.Info("camera unplugged", ports.String("device_id", id))
	if obs != nil {
		obs(spec.Device, domain.TriggerPluggedOut)
	}
	return true
}

// Devices lists the plugged-in cameras ordered by id.
func (s *System) Devices() ([]domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]domain.Device, 0, len(s.cameras))
	for _, spec := range s.cameras {
		devices = append(devices, spec.Device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// OpenDevice opens a camera. Only one AccessFull handle may exist per camera.
func (s *System) OpenDevice(id string, mode ports.AccessMode) (ports.Device, error) {
	if mode == ports.AccessNone {
		return nil, domain.NewEngineError("OpenDevice", domain.ErrorBadParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	spec, ok := s.cameras[id]
	if !ok {
		return nil, domain.NewEngineError("OpenDevice", domain.ErrorNotFound)
	}
	if mode == ports.AccessFull && s.opened[id] != nil {
		return nil, domain.NewEngineError("OpenDevice", domain.ErrorInvalidAccess)
	}

	dev := newDevice(s, spec, mode, s.logger)
	if mode == ports.AccessFull {
		s.opened[id] = dev
	}

	s.logger.Debug("device opened",
		ports.String("device_id", id),
		ports.String("access", mode.String()),
	)
	return dev, nil
}

// RegisterDeviceListObserver installs obs, replacing any previous observer.
func (s *System) RegisterDeviceListObserver(obs ports.DeviceListObserver) error {
	if obs == nil {
		return domain.NewEngineError("RegisterDeviceListObserver", domain.ErrorBadParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = obs
	return nil
}

// UnregisterDeviceListObserver removes the observer.
func (s *System) UnregisterDeviceListObserver() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = nil
	return nil
}

func (s *System) release(id string, dev *Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened[id] == dev {
		delete(s.opened, id)
	}
}
