package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// DefaultPoolSize is the number of frame buffers cycled per capture run.
const DefaultPoolSize = 3

// ControlsFactory builds the typed controls for an opened device's features.
type ControlsFactory func(ports.FeatureSet) ports.Controls

// SessionConfig configures a capture session.
type SessionConfig struct {
	// PoolSize is the number of frame buffers. Zero means DefaultPoolSize.
	PoolSize int

	// Controls adapts the device feature surface. Required.
	Controls ControlsFactory
}

// PoolStats is a snapshot of the buffer pool.
type PoolStats struct {
	Size      int
	Announced int
}

// Session owns one opened device together with its buffer pool and
// delivery bridge.
//
// Control operations (Open, Configure, StartCapture, StopCapture, Close)
// are serialized. State and the exposure target may be read concurrently.
type Session struct {
	opMu sync.Mutex

	system    ports.System
	cfg       SessionConfig
	logger    ports.Logger
	lifecycle *Lifecycle
	queue     *ExposureQueue
	exposing  atomic.Bool

	mu          sync.RWMutex
	device      ports.Device
	controls    ports.Controls
	payloadSize int64
	configured  bool
	pool        *BufferPool
	bridge      *DeliveryBridge
}

// NewSession creates a disconnected session on system.
func NewSession(system ports.System, cfg SessionConfig, logger ports.Logger, emitter EventEmitter) (*Session, error) {
	if system == nil {
		return nil, fmt.Errorf("%w: nil system", domain.ErrInvalidArgument)
	}
	if cfg.Controls == nil {
		return nil, fmt.Errorf("%w: nil controls factory", domain.ErrInvalidArgument)
	}
	if cfg.PoolSize < 0 {
		return nil, fmt.Errorf("%w: pool size %d", domain.ErrInvalidArgument, cfg.PoolSize)
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = DefaultPoolSize
	}

	return &Session{
		system:    system,
		cfg:       cfg,
		logger:    logger,
		lifecycle: NewLifecycle(logger, emitter),
		queue:     NewExposureQueue(),
	}, nil
}

// State returns the current session state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// DeviceID returns the id of the opened device.
func (s *Session) DeviceID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.device == nil {
		return "", false
	}
	return s.device.ID(), true
}

// PayloadSize returns the negotiated frame size, zero before Configure.
func (s *Session) PayloadSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payloadSize
}

// Pool returns a snapshot of the buffer pool of the current or last capture run.
func (s *Session) Pool() PoolStats {
	s.mu.RLock()
	pool := s.pool
	s.mu.RUnlock()
	if pool == nil {
		return PoolStats{}
	}
	return PoolStats{Size: pool.Size(), Announced: pool.Announced()}
}

// BridgeStats returns the delivery counters of the current or last capture run.
func (s *Session) BridgeStats() BridgeStats {
	s.mu.RLock()
	bridge := s.bridge
	s.mu.RUnlock()
	if bridge == nil {
		return BridgeStats{}
	}
	return bridge.Stats()
}

// Open opens deviceID with exclusive access.
func (s *Session) Open(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: empty device id", domain.ErrInvalidArgument)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.lifecycle.TransitionTo(StateOpening, "open "+deviceID); err != nil {
		return err
	}

	device, err := s.system.OpenDevice(deviceID, ports.AccessFull)
	if err != nil {
		_ = s.lifecycle.TransitionTo(StateDisconnected, "open failed")
		return openError(deviceID, err)
	}

	s.mu.Lock()
	s.device = device
	s.controls = s.cfg.Controls(device.Features())
	s.payloadSize = 0
	s.configured = false
	s.pool = nil
	s.bridge = nil
	s.mu.Unlock()

	return s.lifecycle.TransitionTo(StateConfigured, "device opened")
}

func openError(deviceID string, err error) error {
	code, ok := domain.EngineCode(err)
	switch {
	case ok && code == domain.ErrorNotFound:
		return fmt.Errorf("%w: %s: %w", domain.ErrDeviceNotFound, deviceID, err)
	case ok && code == domain.ErrorInvalidAccess:
		return fmt.Errorf("%w: %s: %w", domain.ErrAccessDenied, deviceID, err)
	default:
		return fmt.Errorf("open %s: %w", deviceID, err)
	}
}

// Configure applies network parameters and negotiates the payload size.
// A zero payloadSize keeps the device's own value. It returns the negotiated size.
func (s *Session) Configure(payloadSize int64, params ports.NetworkParams) (int64, error) {
	if payloadSize < 0 || params.PacketSize < 0 || params.StreamBytesPerSecond < 0 {
		return 0, fmt.Errorf("%w: negative configuration value", domain.ErrInvalidArgument)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if state := s.lifecycle.State(); state != StateConfigured {
		return 0, fmt.Errorf("%w: configure in state %s", domain.ErrInvalidState, state)
	}

	s.mu.RLock()
	controls := s.controls
	s.mu.RUnlock()

	if params.AdjustPacketSize {
		if err := controls.AdjustPacketSize(); err != nil {
			return 0, rejected("adjust packet size", err)
		}
	}
	if params.PacketSize > 0 {
		if err := controls.SetPacketSize(params.PacketSize); err != nil {
			return 0, rejected("packet size", err)
		}
	}
	if params.StreamBytesPerSecond > 0 {
		if err := controls.SetStreamBandwidth(params.StreamBytesPerSecond); err != nil {
			return 0, rejected("stream bandwidth", err)
		}
	}
	if payloadSize > 0 {
		if err := controls.SetPayloadSize(payloadSize); err != nil {
			return 0, rejected("payload size", err)
		}
	}

	size, err := controls.PayloadSize()
	if err != nil {
		return 0, rejected("read payload size", err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: device reports payload size %d", domain.ErrConfigurationRejected, size)
	}
	if payloadSize > 0 && size != payloadSize {
		return 0, fmt.Errorf("%w: requested payload size %d, device uses %d",
			domain.ErrConfigurationRejected, payloadSize, size)
	}

	s.mu.Lock()
	s.payloadSize = size
	s.configured = true
	s.mu.Unlock()

	s.logger.Info("device configured",
		ports.Int64("payload_size", size),
		ports.Int64("packet_size", params.PacketSize),
		ports.Int64("stream_bytes_per_second", params.StreamBytesPerSecond),
	)
	return size, nil
}

func rejected(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrConfigurationRejected, what, err)
}

// StartCapture allocates the buffer pool, starts the capture engine and
// queues every buffer. On failure everything is undone and the session
// stays Configured.
func (s *Session) StartCapture() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if state := s.lifecycle.State(); state != StateConfigured {
		return fmt.Errorf("%w: start capture in state %s", domain.ErrInvalidState, state)
	}

	s.mu.RLock()
	device, configured, size := s.device, s.configured, s.payloadSize
	s.mu.RUnlock()
	if !configured {
		return fmt.Errorf("%w: start capture before configure", domain.ErrInvalidState)
	}

	pool := NewBufferPool(device, s.logger)
	buffers, err := pool.Allocate(s.cfg.PoolSize, int(size))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEngineStartFailed, err)
	}

	s.queue.Open()
	bridge := NewDeliveryBridge(pool, s.queue, s.logger)
	device.SetFrameHandler(bridge.OnFrameReceived)

	if err := device.StartCapture(); err != nil {
		s.abortStart(device, pool, bridge, false)
		return fmt.Errorf("%w: %w", domain.ErrEngineStartFailed, err)
	}

	for _, buf := range buffers {
		if err := pool.Announce(buf); err != nil {
			s.abortStart(device, pool, bridge, true)
			return fmt.Errorf("%w: %w", domain.ErrEngineStartFailed, err)
		}
	}

	s.mu.Lock()
	s.pool = pool
	s.bridge = bridge
	s.mu.Unlock()

	return s.lifecycle.TransitionTo(StateCapturing, "capture started")
}

func (s *Session) abortStart(device ports.Device, pool *BufferPool, bridge *DeliveryBridge, started bool) {
	s.queue.Close()
	bridge.Close()
	if err := s.teardown(device, pool, started); err != nil {
		s.logger.Error("failed to undo capture start", ports.Err(err))
	}
}

// StopCapture stops acquisition, drains the engine and releases the pool.
// Pending exposures fail with domain.ErrSessionStopped.
func (s *Session) StopCapture() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.lifecycle.TransitionTo(StateStopping, "stop capture"); err != nil {
		return err
	}

	s.mu.RLock()
	device, controls, pool, bridge := s.device, s.controls, s.pool, s.bridge
	s.mu.RUnlock()

	s.queue.Close()
	bridge.Close()

	if err := controls.AcquisitionStop(); err != nil {
		s.logger.Debug("acquisition stop during capture stop", ports.Err(err))
	}

	err := s.teardown(device, pool, true)

	if terr := s.lifecycle.TransitionTo(StateConfigured, "capture stopped"); terr != nil {
		return errors.Join(err, terr)
	}
	return err
}

// teardown ends capture, takes back every buffer the engine still holds and
// releases the pool.
func (s *Session) teardown(device ports.Device, pool *BufferPool, started bool) error {
	if started {
		if err := device.EndCapture(); err != nil {
			s.logger.Warn("end capture failed", ports.Err(err))
		}
		flushed, err := device.FlushQueue()
		if err != nil {
			s.logger.Warn("flush queue failed", ports.Err(err))
		}
		for _, buf := range flushed {
			pool.Reclaim(buf)
		}
	}
	device.SetFrameHandler(nil)
	return pool.ReleaseAll()
}

// Close closes the device. It is a no-op when already disconnected.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	state := s.lifecycle.State()
	switch state {
	case StateDisconnected:
		return nil
	case StateConfigured:
	default:
		return fmt.Errorf("%w: close in state %s", domain.ErrInvalidState, state)
	}

	s.mu.Lock()
	device := s.device
	s.device = nil
	s.controls = nil
	s.configured = false
	s.payloadSize = 0
	s.mu.Unlock()

	err := device.Close()
	if terr := s.lifecycle.TransitionTo(StateDisconnected, "device closed"); terr != nil {
		return errors.Join(err, terr)
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", device.ID(), err)
	}
	return nil
}

// exposureTarget returns what the coordinator drives, or an error when the
// session is not capturing.
func (s *Session) exposureTarget() (ports.Controls, *ExposureQueue, error) {
	if state := s.lifecycle.State(); state != StateCapturing {
		return nil, nil, fmt.Errorf("%w: expose in state %s", domain.ErrInvalidState, state)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controls, s.queue, nil
}

// reserveExposure claims the session's single exposure slot. It fails when
// another exposure holds the slot or a delivered frame is still unconsumed.
// The returned release frees the slot.
func (s *Session) reserveExposure() (ports.Controls, *ExposureQueue, func(), error) {
	if !s.exposing.CompareAndSwap(false, true) {
		return nil, nil, nil, domain.ErrExposureInProgress
	}
	release := func() { s.exposing.Store(false) }

	controls, queue, err := s.exposureTarget()
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	if queue.Pending() {
		release()
		return nil, nil, nil, fmt.Errorf("%w: unconsumed frame from a previous exposure", domain.ErrExposureInProgress)
	}
	return controls, queue, release, nil
}
