package app

import (
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

const fakeWidth = 64

// fakeDevice implements ports.Device, recording the buffer protocol.
type fakeDevice struct {
	mu        sync.Mutex
	id        string
	handler   ports.FrameHandler
	announced []*domain.FrameBuffer
	queued    []*domain.FrameBuffer
	capturing bool
	closed    bool
	engineID  uint64

	announceErr error
	startErr    error
	queueErr    error
	queueCalls  map[int]int
	revokes     int
	endCaptures int
}

func newFakeDevice(id string) *fakeDevice {
	return &fakeDevice{id: id, queueCalls: make(map[int]int)}
}

func (d *fakeDevice) ID() string                 { return d.id }
func (d *fakeDevice) Features() ports.FeatureSet { return nil }

func (d *fakeDevice) AnnounceBuffer(buf *domain.FrameBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.announceErr != nil {
		return d.announceErr
	}
	d.announced = append(d.announced, buf)
	return nil
}

func (d *fakeDevice) RevokeAllBuffers() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queued) > 0 {
		return domain.NewEngineError("RevokeAllBuffers", domain.ErrorInvalidCall)
	}
	d.revokes++
	d.announced = nil
	return nil
}

func (d *fakeDevice) QueueBuffer(buf *domain.FrameBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queueCalls[buf.Index()]++
	if d.queueErr != nil {
		return d.queueErr
	}
	if !d.capturing {
		return domain.NewEngineError("QueueBuffer", domain.ErrorInvalidCall)
	}
	d.queued = append(d.queued, buf)
	return nil
}

func (d *fakeDevice) FlushQueue() ([]*domain.FrameBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	flushed := d.queued
	d.queued = nil
	return flushed, nil
}

func (d *fakeDevice) StartCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.capturing = true
	return nil
}

func (d *fakeDevice) EndCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.capturing = false
	d.endCaptures++
	return nil
}

func (d *fakeDevice) SetFrameHandler(h ports.FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// deliver fills the oldest queued buffer and hands it to the handler.
// It reports false when nothing is queued.
func (d *fakeDevice) deliver(status domain.FrameStatus) bool {
	d.mu.Lock()
	if len(d.queued) == 0 || d.handler == nil {
		d.mu.Unlock()
		return false
	}
	buf := d.queued[0]
	d.queued = d.queued[1:]
	d.engineID++
	data := buf.Data()
	for i := range data {
		data[i] = byte(i) + byte(d.engineID)
	}
	buf.Width = fakeWidth
	buf.Height = len(data) / fakeWidth
	buf.Format = domain.PixelFormatMono8
	buf.Status = status
	buf.FrameID = d.engineID
	h := d.handler
	d.mu.Unlock()

	h(buf)
	return true
}

func (d *fakeDevice) queuedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queued)
}

func (d *fakeDevice) queueCallsFor(index int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queueCalls[index]
}

// fakeControls implements ports.Controls, recording every command.
type fakeControls struct {
	mu       sync.Mutex
	payload  int64
	commands []string

	payloadErr error
	startErr   error

	// onStart runs on its own goroutine after each AcquisitionStart.
	onStart func()
}

func (c *fakeControls) record(cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, cmd)
}

func (c *fakeControls) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.commands...)
}

func (c *fakeControls) count(cmd string) int {
	n := 0
	for _, got := range c.Commands() {
		if got == cmd {
			n++
		}
	}
	return n
}

func (c *fakeControls) PayloadSize() (int64, error) {
	c.record("PayloadSize")
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload, nil
}

func (c *fakeControls) SetPayloadSize(size int64) error {
	c.record("SetPayloadSize")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payloadErr != nil {
		return c.payloadErr
	}
	c.payload = size
	return nil
}

func (c *fakeControls) SetPacketSize(int64) error {
	c.record("SetPacketSize")
	return nil
}

func (c *fakeControls) AdjustPacketSize() error {
	c.record("AdjustPacketSize")
	return nil
}

func (c *fakeControls) SetStreamBandwidth(int64) error {
	c.record("SetStreamBandwidth")
	return nil
}

func (c *fakeControls) SetAcquisitionMode(ports.AcquisitionMode) error {
	c.record("SetAcquisitionMode")
	return nil
}

func (c *fakeControls) SetExposure(time.Duration) error {
	c.record("SetExposure")
	return nil
}

func (c *fakeControls) AcquisitionStart() error {
	c.record("AcquisitionStart")
	c.mu.Lock()
	err, fn := c.startErr, c.onStart
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if fn != nil {
		go fn()
	}
	return nil
}

func (c *fakeControls) AcquisitionStop() error {
	c.record("AcquisitionStop")
	return nil
}

func (c *fakeControls) setOnStart(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStart = fn
}

// fakeSystem implements ports.System over a set of fake devices.
type fakeSystem struct {
	mu       sync.Mutex
	devices  map[string]*fakeDevice
	opened   map[string]bool
	observer ports.DeviceListObserver
}

func newFakeSystem(devices ...*fakeDevice) *fakeSystem {
	s := &fakeSystem{
		devices: make(map[string]*fakeDevice),
		opened:  make(map[string]bool),
	}
	for _, d := range devices {
		s.devices[d.id] = d
	}
	return s
}

func (s *fakeSystem) Devices() ([]domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Device
	for id := range s.devices {
		out = append(out, domain.Device{ID: id})
	}
	return out, nil
}

func (s *fakeSystem) OpenDevice(id string, mode ports.AccessMode) (ports.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, domain.NewEngineError("OpenDevice", domain.ErrorNotFound)
	}
	if s.opened[id] {
		return nil, domain.NewEngineError("OpenDevice", domain.ErrorInvalidAccess)
	}
	s.opened[id] = true
	return d, nil
}

func (s *fakeSystem) RegisterDeviceListObserver(obs ports.DeviceListObserver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = obs
	return nil
}

func (s *fakeSystem) UnregisterDeviceListObserver() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = nil
	return nil
}

// newCapturingSession opens, configures and starts a session on a fresh
// fake device with the given payload size.
func newCapturingSession(t *testing.T, payload int64) (*Session, *fakeDevice, *fakeControls) {
	t.Helper()

	dev := newFakeDevice("DEV-01")
	controls := &fakeControls{payload: payload}
	s, err := NewSession(newFakeSystem(dev), SessionConfig{
		Controls: func(ports.FeatureSet) ports.Controls { return controls },
	}, &mockLogger{}, nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := s.Open("DEV-01"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.Configure(0, ports.NetworkParams{}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := s.StartCapture(); err != nil {
		t.Fatalf("StartCapture() error = %v", err)
	}
	return s, dev, controls
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
