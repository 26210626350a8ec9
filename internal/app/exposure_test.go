package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

func TestCoordinator_Expose_InvalidArguments(t *testing.T) {
	s, _, controls := newCapturingSession(t, 4096)
	c := NewCoordinator(s, &mockLogger{})
	before := len(controls.Commands())

	tests := []struct {
		name     string
		duration time.Duration
		timeout  time.Duration
	}{
		{"negative duration", -1, time.Second},
		{"zero duration", 0, time.Second},
		{"zero timeout", 10 * time.Millisecond, 0},
		{"negative timeout", 10 * time.Millisecond, -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Expose(context.Background(), tt.duration, tt.timeout)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Expose() error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	if got := len(controls.Commands()); got != before {
		t.Errorf("%d device commands issued for invalid arguments, want 0", got-before)
	}
}

func TestCoordinator_Expose_NotCapturing(t *testing.T) {
	dev := newFakeDevice("DEV-01")
	controls := &fakeControls{payload: 4096}
	s := newTestSession(t, newFakeSystem(dev), controls, nil)
	c := NewCoordinator(s, &mockLogger{})

	if _, err := c.Expose(context.Background(), time.Millisecond, time.Second); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("Expose() on disconnected session error = %v, want ErrInvalidState", err)
	}

	_ = s.Open("DEV-01")
	_, _ = s.Configure(0, ports.NetworkParams{})
	if _, err := c.Expose(context.Background(), time.Millisecond, time.Second); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("Expose() on configured session error = %v, want ErrInvalidState", err)
	}
	if n := controls.count("AcquisitionStart"); n != 0 {
		t.Errorf("AcquisitionStart issued %d times", n)
	}
}

func TestCoordinator_Expose_Protocol(t *testing.T) {
	s, dev, controls := newCapturingSession(t, 4096)
	controls.setOnStart(func() { dev.deliver(domain.FrameComplete) })
	c := NewCoordinator(s, &mockLogger{})

	frame, err := c.Expose(context.Background(), 10*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("Expose() error = %v", err)
	}
	if frame == nil || frame.Len() != 4096 {
		t.Fatalf("Expose() frame = %v", frame)
	}

	want := []string{"PayloadSize", "SetAcquisitionMode", "SetExposure", "AcquisitionStart", "AcquisitionStop"}
	got := controls.Commands()
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCoordinator_Expose_Concurrent(t *testing.T) {
	s, dev, controls := newCapturingSession(t, 4096)
	release := make(chan struct{})
	controls.setOnStart(func() {
		<-release
		dev.deliver(domain.FrameComplete)
	})
	c := NewCoordinator(s, &mockLogger{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Expose(context.Background(), 10*time.Millisecond, time.Second)
		errCh <- err
	}()

	waitFor(t, "first acquisition start", func() bool { return controls.count("AcquisitionStart") == 1 })

	if _, err := c.Expose(context.Background(), 10*time.Millisecond, time.Second); !errors.Is(err, domain.ErrExposureInProgress) {
		t.Errorf("second Expose() error = %v, want ErrExposureInProgress", err)
	}
	if n := controls.count("AcquisitionStart"); n != 1 {
		t.Errorf("AcquisitionStart issued %d times, want 1", n)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Errorf("first Expose() error = %v", err)
	}
}

func TestCoordinator_ReserveIsPerSession(t *testing.T) {
	s, _, controls := newCapturingSession(t, 4096)
	first := NewCoordinator(s, &mockLogger{})
	second := NewCoordinator(s, &mockLogger{})

	e, err := first.Reserve()
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if _, err := second.Reserve(); !errors.Is(err, domain.ErrExposureInProgress) {
		t.Errorf("Reserve() on second coordinator error = %v, want ErrExposureInProgress", err)
	}
	if _, err := second.Expose(context.Background(), time.Millisecond, time.Second); !errors.Is(err, domain.ErrExposureInProgress) {
		t.Errorf("Expose() on second coordinator error = %v, want ErrExposureInProgress", err)
	}
	if n := controls.count("AcquisitionStart"); n != 0 {
		t.Errorf("AcquisitionStart issued %d times while reserved", n)
	}

	e.Release()
	e.Release()
	e2, err := second.Reserve()
	if err != nil {
		t.Fatalf("Reserve() after Release error = %v", err)
	}
	e2.Release()
}

func TestCoordinator_Expose_TimeoutThenLateDelivery(t *testing.T) {
	s, dev, controls := newCapturingSession(t, 4096)
	c := NewCoordinator(s, &mockLogger{})

	// No delivery at all.
	_, err := c.Expose(context.Background(), time.Millisecond, 20*time.Millisecond)
	if !errors.Is(err, domain.ErrExposureTimeout) {
		t.Fatalf("Expose() error = %v, want ErrExposureTimeout", err)
	}
	if n := controls.count("AcquisitionStop"); n != 1 {
		t.Errorf("AcquisitionStop issued %d times after timeout, want 1", n)
	}

	// The frame shows up late.
	dev.deliver(domain.FrameComplete)
	if got := dev.queueCallsFor(0); got != 2 {
		t.Errorf("late buffer queued %d times in total, want 2 (initial + requeue)", got)
	}
	if p := s.Pool(); p.Announced != DefaultPoolSize {
		t.Errorf("Announced = %d, want %d", p.Announced, DefaultPoolSize)
	}

	// It blocks the next exposure until discarded.
	if _, err := c.Expose(context.Background(), time.Millisecond, time.Second); !errors.Is(err, domain.ErrExposureInProgress) {
		t.Fatalf("Expose() with stale frame error = %v, want ErrExposureInProgress", err)
	}
	if !c.DiscardStale() {
		t.Fatal("DiscardStale() = false, want true")
	}
	if c.DiscardStale() {
		t.Error("second DiscardStale() = true")
	}

	controls.setOnStart(func() { dev.deliver(domain.FrameComplete) })
	frame, err := c.Expose(context.Background(), time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("Expose() after discard error = %v", err)
	}
	if frame.Seq() != 2 {
		t.Errorf("Seq() = %d, want 2", frame.Seq())
	}
}

func TestCoordinator_Expose_DiscardsFramesBeforeStart(t *testing.T) {
	s, dev, controls := newCapturingSession(t, 4096)
	controls.setOnStart(func() { dev.deliver(domain.FrameComplete) })
	c := NewCoordinator(s, &mockLogger{})
	// Every delivery looks older than the exposure.
	c.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err := c.Expose(context.Background(), time.Millisecond, 50*time.Millisecond)
	if !errors.Is(err, domain.ErrExposureTimeout) {
		t.Errorf("Expose() error = %v, want ErrExposureTimeout", err)
	}
}

func TestCoordinator_Expose_StopCaptureWakesWaiter(t *testing.T) {
	s, _, controls := newCapturingSession(t, 4096)
	c := NewCoordinator(s, &mockLogger{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Expose(context.Background(), time.Millisecond, 5*time.Second)
		errCh <- err
	}()

	waitFor(t, "acquisition start", func() bool { return controls.count("AcquisitionStart") == 1 })
	if err := s.StopCapture(); err != nil {
		t.Fatalf("StopCapture() error = %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrSessionStopped) {
			t.Errorf("Expose() error = %v, want ErrSessionStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expose() not woken by StopCapture")
	}
}

func TestCoordinator_Expose_ContextCanceled(t *testing.T) {
	s, _, controls := newCapturingSession(t, 4096)
	c := NewCoordinator(s, &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	controls.setOnStart(cancel)

	_, err := c.Expose(ctx, time.Millisecond, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expose() error = %v, want context.Canceled", err)
	}
	if n := controls.count("AcquisitionStop"); n != 1 {
		t.Errorf("AcquisitionStop issued %d times, want 1", n)
	}
}

func TestCoordinator_Expose_AcquisitionStartFails(t *testing.T) {
	s, _, controls := newCapturingSession(t, 4096)
	controls.mu.Lock()
	controls.startErr = domain.NewEngineError("RunCommand AcquisitionStart", domain.ErrorTimeout)
	controls.mu.Unlock()
	c := NewCoordinator(s, &mockLogger{})

	_, err := c.Expose(context.Background(), time.Millisecond, time.Second)
	if code, ok := domain.EngineCode(err); !ok || code != domain.ErrorTimeout {
		t.Errorf("Expose() error = %v, want engine timeout", err)
	}

	// The in-flight flag is cleared on failure.
	controls.mu.Lock()
	controls.startErr = nil
	controls.mu.Unlock()
	if _, err := c.Expose(context.Background(), time.Millisecond, 10*time.Millisecond); !errors.Is(err, domain.ErrExposureTimeout) {
		t.Errorf("retry error = %v, want ErrExposureTimeout", err)
	}
}
