package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// Coordinator runs single exposures against a capturing session:
// acquisition start, wait for one frame, acquisition stop.
// The session allows at most one outstanding exposure.
type Coordinator struct {
	session *Session
	logger  ports.Logger
	now     func() time.Time
}

// NewCoordinator creates a coordinator for session.
func NewCoordinator(session *Session, logger ports.Logger) *Coordinator {
	return &Coordinator{
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// Exposure holds the session's exposure slot between Reserve and Release.
// Work that must not touch the device unless the exposure will run, such
// as opening a shutter, goes between the two.
type Exposure struct {
	c        *Coordinator
	controls ports.Controls
	queue    *ExposureQueue
	release  func()
	once     sync.Once
}

// Reserve claims the exposure slot. It returns ErrExposureInProgress while
// another exposure runs or a frame from a previous one is still queued, and
// ErrInvalidState when the session is not capturing.
func (c *Coordinator) Reserve() (*Exposure, error) {
	controls, queue, release, err := c.session.reserveExposure()
	if err != nil {
		return nil, err
	}
	return &Exposure{c: c, controls: controls, queue: queue, release: release}, nil
}

// Release frees the slot. It is safe to call more than once.
func (e *Exposure) Release() {
	e.once.Do(e.release)
}

// Expose takes one frame exposed for duration, waiting at most timeout for
// its delivery. A timeout is recoverable; a late frame from a timed-out
// exposure must be dropped with DiscardStale before the next call.
func (c *Coordinator) Expose(ctx context.Context, duration, timeout time.Duration) (*domain.Frame, error) {
	if err := validateExposure(duration, timeout); err != nil {
		return nil, err
	}
	e, err := c.Reserve()
	if err != nil {
		return nil, err
	}
	defer e.Release()
	return e.Run(ctx, duration, timeout)
}

// Run performs the reserved exposure. It does not release the slot.
func (e *Exposure) Run(ctx context.Context, duration, timeout time.Duration) (*domain.Frame, error) {
	if err := validateExposure(duration, timeout); err != nil {
		return nil, err
	}
	c, controls, queue := e.c, e.controls, e.queue

	if err := controls.SetAcquisitionMode(ports.AcquisitionSingleFrame); err != nil {
		return nil, fmt.Errorf("set acquisition mode: %w", err)
	}
	if err := controls.SetExposure(duration); err != nil {
		return nil, fmt.Errorf("set exposure %v: %w", duration, err)
	}

	start := c.now()
	if err := controls.AcquisitionStart(); err != nil {
		return nil, fmt.Errorf("acquisition start: %w", err)
	}
	defer func() {
		if err := controls.AcquisitionStop(); err != nil {
			c.logger.Warn("acquisition stop failed", ports.Err(err))
		}
	}()

	c.logger.Debug("exposure started",
		ports.Duration("duration", duration),
		ports.Duration("timeout", timeout),
	)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		frame, err := queue.Take(waitCtx)
		if err != nil {
			return nil, c.waitError(ctx, err, timeout)
		}
		if frame.Timestamp().Before(start) {
			c.logger.Warn("discarding frame delivered before exposure start",
				ports.String("frame_id", frame.ID()),
				ports.Uint64("seq", frame.Seq()),
			)
			continue
		}
		if state := c.session.State(); state != StateCapturing {
			return nil, fmt.Errorf("%w: session %s", domain.ErrSessionStopped, state)
		}

		c.logger.Debug("exposure complete",
			ports.String("frame_id", frame.ID()),
			ports.Duration("elapsed", c.now().Sub(start)),
		)
		return frame, nil
	}
}

func validateExposure(duration, timeout time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: exposure duration %v", domain.ErrInvalidArgument, duration)
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: exposure timeout %v", domain.ErrInvalidArgument, timeout)
	}
	return nil
}

func (c *Coordinator) waitError(ctx context.Context, err error, timeout time.Duration) error {
	switch {
	case errors.Is(err, domain.ErrSessionStopped):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn("exposure timed out", ports.Duration("timeout", timeout))
		return fmt.Errorf("%w: no frame within %v", domain.ErrExposureTimeout, timeout)
	default:
		return err
	}
}

// DiscardStale drops a frame left in the exposure queue, typically a late
// delivery after a timeout. It reports whether a frame was dropped.
func (c *Coordinator) DiscardStale() bool {
	_, queue, err := c.session.exposureTarget()
	if err != nil {
		return false
	}
	frame := queue.Discard()
	if frame == nil {
		return false
	}
	c.logger.Info("discarded stale frame",
		ports.String("frame_id", frame.ID()),
		ports.Uint64("seq", frame.Seq()),
	)
	return true
}
