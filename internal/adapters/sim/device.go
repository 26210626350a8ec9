package sim

import (
	"sync"
	"time"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

const (
	defaultExposure         = 10 * time.Millisecond
	defaultBytesPerSecond   = 115000000
	maxStreamBytesPerSecond = 124000000
)

// Device implements ports.Device for one emulated camera.
type Device struct {
	sys    *System
	id     string
	info   domain.Device
	access ports.AccessMode
	logger ports.Logger

	mu          sync.Mutex
	sensor      Sensor
	packetSize  int64
	bandwidth   int64
	mode        ports.AcquisitionMode
	frameCount  int64
	exposure    time.Duration
	adjustDone  bool
	announced   map[*domain.FrameBuffer]struct{}
	queue       []*domain.FrameBuffer
	capturing   bool
	endCh       chan struct{}
	stopCh      chan struct{}
	handler     ports.FrameHandler
	frameID     uint64
	dropped     uint64
	lost        bool
	closed      bool
	acquisition sync.WaitGroup
}

func newDevice(sys *System, spec CameraSpec, access ports.AccessMode, logger ports.Logger) *Device {
	return &Device{
		sys:        sys,
		id:         spec.Device.ID,
		info:       spec.Device,
		access:     access,
		logger:     logger,
		sensor:     spec.Sensor,
		packetSize: 1500,
		bandwidth:  defaultBytesPerSecond,
		mode:       ports.AcquisitionContinuous,
		frameCount: 1,
		exposure:   defaultExposure,
		adjustDone: true,
		announced:  make(map[*domain.FrameBuffer]struct{}),
	}
}

// ID returns the device id.
func (d *Device) ID() string { return d.id }

// Features returns the GenICam feature map of the device.
func (d *Device) Features() ports.FeatureSet { return &features{d: d} }

// Dropped returns how many frames were lost because no buffer was queued.
func (d *Device) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// checkUsable reports why the device cannot take a command. Callers hold d.mu.
func (d *Device) checkUsable(op string, write bool) error {
	switch {
	case d.closed:
		return domain.NewEngineError(op, domain.ErrorDeviceNotOpen)
	case d.lost:
		return domain.NewEngineError(op, domain.ErrorNotFound)
	case write && d.access != ports.AccessFull && d.access != ports.AccessConfig:
		return domain.NewEngineError(op, domain.ErrorInvalidAccess)
	}
	return nil
}

func (d *Device) payloadSize() int64 {
	return int64(d.sensor.Format.ImageSize(d.sensor.Width, d.sensor.Height))
}

func (d *Device) AnnounceBuffer(buf *domain.FrameBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("AnnounceBuffer", true); err != nil {
		return err
	}
	if d.access != ports.AccessFull {
		return domain.NewEngineError("AnnounceBuffer", domain.ErrorInvalidAccess)
	}
	if buf == nil || int64(buf.Size()) < d.payloadSize() {
		return domain.NewEngineError("AnnounceBuffer", domain.ErrorBadParameter)
	}
	d.announced[buf] = struct{}{}
	return nil
}

func (d *Device) RevokeAllBuffers() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) > 0 {
		return domain.NewEngineError("RevokeAllBuffers", domain.ErrorInvalidCall)
	}
	d.announced = make(map[*domain.FrameBuffer]struct{})
	return nil
}

func (d *Device) QueueBuffer(buf *domain.FrameBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("QueueBuffer", false); err != nil {
		return err
	}
	if _, ok := d.announced[buf]; !ok {
		return domain.NewEngineError("QueueBuffer", domain.ErrorBadParameter)
	}
	if !d.capturing {
		return domain.NewEngineError("QueueBuffer", domain.ErrorInvalidCall)
	}
	for _, q := range d.queue {
		if q == buf {
			return domain.NewEngineError("QueueBuffer", domain.ErrorInvalidCall)
		}
	}
	d.queue = append(d.queue, buf)
	return nil
}

func (d *Device) FlushQueue() ([]*domain.FrameBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	flushed := d.queue
	d.queue = nil
	return flushed, nil
}

func (d *Device) StartCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("StartCapture", true); err != nil {
		return err
	}
	if d.capturing {
		return domain.NewEngineError("StartCapture", domain.ErrorInvalidCall)
	}
	d.capturing = true
	d.endCh = make(chan struct{})
	return nil
}

// EndCapture stops the capture engine and waits for running acquisitions.
// After it returns the frame handler is not called again.
func (d *Device) EndCapture() error {
	d.mu.Lock()
	d.endCaptureLocked()
	d.mu.Unlock()

	d.acquisition.Wait()
	return nil
}

func (d *Device) endCaptureLocked() {
	if !d.capturing {
		return
	}
	d.capturing = false
	close(d.endCh)
	d.stopCh = nil
}

func (d *Device) SetFrameHandler(h ports.FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// Close ends capture if needed and releases exclusive access.
func (d *Device) Close() error {
	if err := d.EndCapture(); err != nil {
		return err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.sys.release(d.id, d)
	return nil
}

func (d *Device) linkLost() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
	d.endCaptureLocked()
}

func (d *Device) acquisitionStart() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("RunCommand AcquisitionStart", true); err != nil {
		return err
	}
	if d.stopCh != nil || !d.capturing {
		// Already acquiring, or no capture engine to deliver into.
		return nil
	}

	frames := int64(0)
	switch d.mode {
	case ports.AcquisitionSingleFrame:
		frames = 1
	case ports.AcquisitionMultiFrame:
		frames = d.frameCount
	}

	stop := make(chan struct{})
	d.stopCh = stop
	d.acquisition.Add(1)
	go d.acquire(stop, d.endCh, frames, d.exposure, d.sensor.Latency)
	return nil
}

func (d *Device) acquisitionStop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.NewEngineError("RunCommand AcquisitionStop", domain.ErrorDeviceNotOpen)
	}
	if d.stopCh != nil {
		close(d.stopCh)
		d.stopCh = nil
	}
	return nil
}

// acquire produces frames until the count is reached, acquisition stops or
// capture ends. frames <= 0 means continuous.
func (d *Device) acquire(stop, end <-chan struct{}, frames int64, exposure, latency time.Duration) {
	defer d.acquisition.Done()

	for n := int64(0); frames <= 0 || n < frames; n++ {
		timer := time.NewTimer(exposure)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-end:
			timer.Stop()
			return
		case <-timer.C:
		}

		// Readout: the exposure is over, only the end of capture cancels it.
		if latency > 0 {
			readout := time.NewTimer(latency)
			select {
			case <-end:
				readout.Stop()
				return
			case <-readout.C:
			}
		}

		d.deliver(end)
	}

	d.mu.Lock()
	if d.stopCh == stop {
		d.stopCh = nil
	}
	d.mu.Unlock()
}

// deliver fills the oldest queued buffer and hands it to the frame handler.
func (d *Device) deliver(end <-chan struct{}) {
	d.mu.Lock()
	select {
	case <-end:
		d.mu.Unlock()
		return
	default:
	}
	if len(d.queue) == 0 || d.handler == nil {
		d.dropped++
		d.mu.Unlock()
		d.logger.Debug("frame dropped, no buffer queued", ports.String("device_id", d.id))
		return
	}

	buf := d.queue[0]
	d.queue = d.queue[1:]
	d.frameID++
	d.fill(buf)
	h := d.handler
	d.mu.Unlock()

	h(buf)
}

// fill writes a test pattern and delivery metadata. Callers hold d.mu.
func (d *Device) fill(buf *domain.FrameBuffer) {
	s := d.sensor
	buf.Width = s.Width
	buf.Height = s.Height
	buf.Format = s.Format
	buf.FrameID = d.frameID

	need := s.Format.ImageSize(s.Width, s.Height)
	if need > buf.Size() {
		buf.Status = domain.FrameTooSmall
		return
	}

	data := buf.Data()
	for i := 0; i < need; i++ {
		data[i] = byte(i + int(d.frameID))
	}
	buf.Status = domain.FrameComplete
}
