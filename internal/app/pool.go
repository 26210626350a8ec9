package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// BufferPool owns the fixed set of frame buffers cycled through a device.
//
// Every buffer is in exactly one place at a time: held by the pool or
// queued to the engine. The pool tracks which, and refuses to release
// memory the engine may still write to.
type BufferPool struct {
	mu      sync.Mutex
	device  ports.Device
	logger  ports.Logger
	buffers []*domain.FrameBuffer
	queued  []bool
	pending int
}

// NewBufferPool creates an empty pool bound to device.
func NewBufferPool(device ports.Device, logger ports.Logger) *BufferPool {
	return &BufferPool{
		device: device,
		logger: logger,
	}
}

// Allocate creates count buffers of size bytes and registers them with the device.
// The pool must be empty.
func (p *BufferPool) Allocate(count, size int) ([]*domain.FrameBuffer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: buffer count %d", domain.ErrInvalidArgument, count)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d", domain.ErrInvalidArgument, size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buffers) > 0 {
		return nil, fmt.Errorf("%w: pool already holds %d buffers", domain.ErrInvalidState, len(p.buffers))
	}

	buffers := make([]*domain.FrameBuffer, count)
	for i := range buffers {
		buffers[i] = domain.NewFrameBuffer(i, size)
		if err := p.device.AnnounceBuffer(buffers[i]); err != nil {
			if rerr := p.device.RevokeAllBuffers(); rerr != nil {
				p.logger.Warn("failed to revoke partially registered buffers", ports.Err(rerr))
			}
			return nil, fmt.Errorf("%w: register buffer %d: %w", domain.ErrEngineRejected, i, err)
		}
	}

	p.buffers = buffers
	p.queued = make([]bool, count)
	p.pending = 0

	p.logger.Debug("buffer pool allocated",
		ports.Int("count", count),
		ports.Int("size", size),
	)

	return append([]*domain.FrameBuffer(nil), buffers...), nil
}

// Announce hands buf to the engine for filling.
// On error the buffer stays with the pool.
func (p *BufferPool) Announce(buf *domain.FrameBuffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, err := p.indexOf(buf)
	if err != nil {
		return err
	}
	if p.queued[i] {
		return fmt.Errorf("%w: buffer %d already queued", domain.ErrInvalidState, i)
	}

	buf.ResetMetadata()
	if err := p.device.QueueBuffer(buf); err != nil {
		return fmt.Errorf("%w: queue buffer %d: %w", domain.ErrEngineRejected, i, err)
	}

	p.queued[i] = true
	p.pending++
	return nil
}

// Reclaim records that the engine returned buf. It reports whether the
// buffer was queued.
func (p *BufferPool) Reclaim(buf *domain.FrameBuffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, err := p.indexOf(buf)
	if err != nil || !p.queued[i] {
		return false
	}
	p.queued[i] = false
	p.pending--
	return true
}

// ReleaseAll revokes every buffer from the device and empties the pool.
// It fails with domain.ErrBufferStillAnnounced while any buffer is queued;
// freeing that memory would let the engine write into released storage.
func (p *BufferPool) ReleaseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buffers) == 0 {
		return nil
	}

	if p.pending > 0 {
		p.logger.Error("refusing to release buffers still queued to the engine",
			ports.Int("queued", p.pending),
			ports.Int("size", len(p.buffers)),
		)
		return fmt.Errorf("%w: %d of %d buffers", domain.ErrBufferStillAnnounced, p.pending, len(p.buffers))
	}

	if err := p.device.RevokeAllBuffers(); err != nil {
		return fmt.Errorf("revoke buffers: %w", err)
	}

	p.buffers = nil
	p.queued = nil
	return nil
}

// Size returns the number of allocated buffers.
func (p *BufferPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

// Announced returns the number of buffers currently queued to the engine.
func (p *BufferPool) Announced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *BufferPool) indexOf(buf *domain.FrameBuffer) (int, error) {
	if buf == nil {
		return 0, fmt.Errorf("%w: nil buffer", domain.ErrInvalidArgument)
	}
	i := buf.Index()
	if i < 0 || i >= len(p.buffers) || p.buffers[i] != buf {
		return 0, fmt.Errorf("%w: buffer %d does not belong to this pool", domain.ErrInvalidArgument, i)
	}
	return i, nil
}
