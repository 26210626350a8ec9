package mantacam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/mantacam/internal/app"
	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// eventBacklog bounds the list-change notifications waiting for the worker.
const eventBacklog = 32

// shutterCloseTimeout bounds closing the shutter after an exposure.
const shutterCloseTimeout = 5 * time.Second

// Auto-connect retry policy for devices that are busy or fail to start.
const (
	autoConnectAttempts     = 5
	autoConnectInitialDelay = 200 * time.Millisecond
	autoConnectMaxDelay     = 5 * time.Second
)

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	PoolSize        int
	Announced       int
	Delivered       uint64
	Dropped         uint64
	Overwritten     uint64
	RequeueFailures uint64
	Panics          uint64
	DroppedEvents   uint64
}

// Camera is a single camera driven through a capture engine.
// Use New() to create an instance and Connect() to open a device.
// All methods are safe for concurrent use.
type Camera struct {
	config      Config
	opts        options
	system      ports.System
	logger      ports.Logger
	session     *app.Session
	coordinator *app.Coordinator
	watcher     *app.DeviceWatcher

	// mu serializes Connect, Disconnect and Close.
	mu     sync.Mutex
	closed bool
	fatal  error

	events        chan domain.CameraListEvent
	droppedEvents atomic.Uint64
	done          chan struct{}
	wg            sync.WaitGroup
}

// New creates a Camera on system and starts watching the device list.
// No device is opened unless cfg.AutoConnect is set and cfg.DeviceID is
// present.
func New(system System, cfg Config, opts ...Option) (*Camera, error) {
	if system == nil {
		return nil, fmt.Errorf("%w: nil system", ErrInvalidArgument)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	session, err := app.NewSession(system, app.SessionConfig{
		PoolSize: cfg.PoolSize,
		Controls: o.controls,
	}, o.logger, emitter)
	if err != nil {
		return nil, err
	}

	c := &Camera{
		config:      cfg,
		opts:        o,
		system:      system,
		logger:      o.logger,
		session:     session,
		coordinator: app.NewCoordinator(session, o.logger),
		watcher:     app.NewDeviceWatcher(o.logger),
		events:      make(chan domain.CameraListEvent, eventBacklog),
		done:        make(chan struct{}),
	}
	c.watcher.OnConnected(func(id string) { c.enqueue(domain.CameraListEvent{Kind: domain.Connected, DeviceID: id}) })
	c.watcher.OnDisconnected(func(id string) { c.enqueue(domain.CameraListEvent{Kind: domain.Disconnected, DeviceID: id}) })

	if err := c.watcher.Attach(system); err != nil {
		return nil, fmt.Errorf("watch device list: %w", err)
	}

	c.wg.Add(1)
	go c.run()

	return c, nil
}

// enqueue runs on the engine's notification goroutine and never blocks it.
func (c *Camera) enqueue(ev domain.CameraListEvent) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- ev:
	default:
		c.droppedEvents.Add(1)
		c.logger.Warn("device list event dropped, worker busy",
			ports.String("device_id", ev.DeviceID),
			ports.String("kind", ev.Kind.String()),
		)
	}
}

func (c *Camera) run() {
	defer c.wg.Done()

	if c.config.AutoConnect {
		c.connectIfPresent()
	}

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Camera) handle(ev domain.CameraListEvent) {
	h := c.opts.eventHandler
	switch ev.Kind {
	case domain.Connected:
		if h != nil {
			h.OnCameraConnected(ev.DeviceID)
		}
		if c.config.AutoConnect && ev.DeviceID == c.config.DeviceID {
			c.autoConnect()
		}
	case domain.Disconnected:
		if h != nil {
			h.OnCameraDisconnected(ev.DeviceID)
		}
		if id, ok := c.UniqueID(); ok && id == ev.DeviceID {
			if err := c.Disconnect(); err != nil {
				c.logger.Error("disconnect after device loss failed",
					ports.String("device_id", ev.DeviceID),
					ports.Err(err),
				)
			}
		}
	}
}

func (c *Camera) connectIfPresent() {
	devices, err := c.system.Devices()
	if err != nil {
		c.logger.Warn("list devices failed", ports.Err(err))
		return
	}
	for _, d := range devices {
		if d.ID == c.config.DeviceID {
			c.autoConnect()
			return
		}
	}
	c.logger.Info("waiting for device", ports.String("device_id", c.config.DeviceID))
}

func (c *Camera) autoConnect() {
	b := app.NewBackoff(autoConnectInitialDelay, autoConnectMaxDelay)
	for attempt := 1; ; attempt++ {
		if c.session.State() != app.StateDisconnected {
			return
		}
		err := c.Connect(c.config.DeviceID)
		if err == nil {
			return
		}
		if !retryable(err) || attempt == autoConnectAttempts {
			c.logger.Error("auto-connect failed",
				ports.String("device_id", c.config.DeviceID),
				ports.Int("attempt", attempt),
				ports.Err(err),
			)
			return
		}
		c.logger.Warn("auto-connect failed, retrying",
			ports.String("device_id", c.config.DeviceID),
			ports.Int("attempt", attempt),
			ports.Duration("delay", b.Current()),
			ports.Err(err),
		)
		if !b.Wait(c.done) {
			return
		}
	}
}

// retryable reports whether a connect failure may clear up by itself.
func retryable(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrEngineStartFailed)
}

// Connect opens deviceID, configures the stream and starts capturing.
// On failure the device is closed again.
func (c *Camera) Connect(deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: camera closed", ErrInvalidState)
	}
	if c.fatal != nil {
		return fmt.Errorf("%w: refusing to connect after %w", ErrInvalidState, c.fatal)
	}

	if err := c.session.Open(deviceID); err != nil {
		return err
	}

	size, err := c.session.Configure(c.config.PayloadSize, c.config.Network)
	if err == nil {
		err = c.session.StartCapture()
	}
	if err != nil {
		if cerr := c.session.Close(); cerr != nil {
			c.logger.Warn("close after failed connect", ports.Err(cerr))
		}
		return err
	}

	c.logger.Info("camera connected",
		ports.String("device_id", deviceID),
		ports.Int64("payload_size", size),
	)
	return nil
}

// Connected reports whether a device is open and capturing.
func (c *Camera) Connected() bool {
	return c.session.State() == app.StateCapturing
}

// UniqueID returns the id of the open device.
func (c *Camera) UniqueID() (string, bool) {
	return c.session.DeviceID()
}

// State returns the session state.
func (c *Camera) State() State {
	return convertState(c.session.State())
}

// PayloadSize returns the negotiated frame size, zero when disconnected.
func (c *Camera) PayloadSize() int64 {
	return c.session.PayloadSize()
}

// Devices lists the cameras the engine can reach.
func (c *Camera) Devices() ([]Device, error) {
	return c.system.Devices()
}

// Stats returns the counters of the current or last capture run.
func (c *Camera) Stats() Stats {
	pool := c.session.Pool()
	bridge := c.session.BridgeStats()
	return Stats{
		PoolSize:        pool.Size,
		Announced:       pool.Announced,
		Delivered:       bridge.Delivered,
		Dropped:         bridge.Dropped,
		Overwritten:     bridge.Overwritten,
		RequeueFailures: bridge.RequeueFailures,
		Panics:          bridge.Panics,
		DroppedEvents:   c.droppedEvents.Load(),
	}
}

// Expose takes one frame exposed for duration. With shutter set, the
// mechanical shutter is opened once the exposure slot is reserved and
// closed before the slot is released.
//
// Expose waits at most duration plus Config.ExposureTimeoutMargin. After
// ErrExposureTimeout the late frame may still arrive; call DiscardStale
// before exposing again.
func (c *Camera) Expose(ctx context.Context, duration time.Duration, shutter bool) (*Frame, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: exposure duration %v", ErrInvalidArgument, duration)
	}
	if shutter && c.opts.shutter == nil {
		return nil, fmt.Errorf("%w: no shutter installed", ErrInvalidArgument)
	}
	if !c.Connected() {
		return nil, fmt.Errorf("%w: camera not capturing", ErrInvalidState)
	}

	exposure, err := c.coordinator.Reserve()
	if err != nil {
		return nil, err
	}
	defer exposure.Release()

	if shutter {
		if err := c.opts.shutter.Open(ctx); err != nil {
			return nil, fmt.Errorf("open shutter: %w", err)
		}
		defer c.closeShutter(ctx)
	}

	return exposure.Run(ctx, duration, duration+c.config.ExposureTimeoutMargin)
}

func (c *Camera) closeShutter(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutterCloseTimeout)
	defer cancel()
	if err := c.opts.shutter.Close(ctx); err != nil {
		c.logger.Error("close shutter failed", ports.Err(err))
	}
}

// DiscardStale drops a frame left over from a timed-out exposure.
// It reports whether one was dropped.
func (c *Camera) DiscardStale() bool {
	return c.coordinator.DiscardStale()
}

// Disconnect stops capturing and closes the device. It is a no-op when
// no device is open.
//
// If the engine still holds a buffer after stopping, the Camera logs the
// fault, returns ErrBufferStillAnnounced and refuses further connects.
func (c *Camera) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Camera) disconnectLocked() error {
	id, _ := c.session.DeviceID()

	var errs []error
	if c.session.State() == app.StateCapturing {
		if err := c.session.StopCapture(); err != nil {
			if errors.Is(err, ErrBufferStillAnnounced) {
				c.fatal = err
				c.logger.Error("buffers still held by the engine, camera disabled",
					ports.String("device_id", id),
					ports.Err(err),
				)
			}
			errs = append(errs, err)
		}
	}
	if err := c.session.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 && id != "" {
		c.logger.Info("camera disconnected", ports.String("device_id", id))
	}
	return errors.Join(errs...)
}

// Close disconnects, stops watching the device list and stops the event
// worker. The Camera cannot be used afterwards.
func (c *Camera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	err := c.disconnectLocked()
	c.mu.Unlock()

	if derr := c.watcher.Detach(c.system); derr != nil {
		err = errors.Join(err, fmt.Errorf("stop watching device list: %w", derr))
	}
	c.wg.Wait()
	return err
}
