package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// BridgeStats counts what the delivery bridge has seen.
type BridgeStats struct {
	Delivered       uint64
	Dropped         uint64
	Overwritten     uint64
	RequeueFailures uint64
	Panics          uint64
}

// DeliveryBridge turns engine buffer deliveries into frames on the exposure
// queue and hands every buffer back to the engine afterwards.
//
// OnFrameReceived runs on the engine's delivery goroutine. Deliveries are
// serialized by the bridge mutex.
type DeliveryBridge struct {
	mu     sync.Mutex
	pool   *BufferPool
	queue  *ExposureQueue
	logger ports.Logger
	closed bool
	seq    uint64
	stats  BridgeStats

	now   func() time.Time
	newID func() string
}

// NewDeliveryBridge creates a bridge that reclaims into pool and publishes to queue.
func NewDeliveryBridge(pool *BufferPool, queue *ExposureQueue, logger ports.Logger) *DeliveryBridge {
	return &DeliveryBridge{
		pool:   pool,
		queue:  queue,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// OnFrameReceived handles one delivered buffer. Whatever happens while
// building the frame, the buffer is requeued exactly once unless the bridge
// has been closed, in which case it stays with the pool.
func (b *DeliveryBridge) OnFrameReceived(buf *domain.FrameBuffer) {
	if buf == nil {
		b.logger.Warn("delivery without a buffer")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pool.Reclaim(buf) {
		b.logger.Warn("delivery of a buffer the pool did not queue", ports.Int("index", buf.Index()))
		return
	}
	defer b.requeue(buf)

	b.stats.Delivered++
	if b.closed {
		return
	}

	b.seq++
	frame, err := domain.NewFrame(buf, b.seq, b.newID(), b.now())
	if err != nil {
		b.stats.Dropped++
		b.logger.Warn("dropping delivered frame",
			ports.Int("buffer", buf.Index()),
			ports.String("status", buf.Status.String()),
			ports.Err(err),
		)
		return
	}

	overwritten, accepted := b.queue.Put(frame)
	switch {
	case !accepted:
		b.stats.Dropped++
		b.logger.Debug("exposure queue closed, frame dropped", ports.String("frame_id", frame.ID()))
	case overwritten:
		b.stats.Overwritten++
		b.logger.Warn("replaced unconsumed frame",
			ports.String("frame_id", frame.ID()),
			ports.Uint64("seq", frame.Seq()),
		)
	default:
		b.logger.Debug("frame delivered",
			ports.String("frame_id", frame.ID()),
			ports.Uint64("engine_frame_id", frame.EngineFrameID()),
			ports.Int("bytes", frame.Len()),
		)
	}
}

// requeue runs deferred from OnFrameReceived and recovers a panic in the
// frame path so the buffer still goes back to the engine.
func (b *DeliveryBridge) requeue(buf *domain.FrameBuffer) {
	if r := recover(); r != nil {
		b.stats.Panics++
		b.logger.Error("panic while handling delivered frame",
			ports.Int("buffer", buf.Index()),
			ports.Any("panic", r),
		)
	}

	if b.closed {
		return
	}
	if err := b.pool.Announce(buf); err != nil {
		b.stats.RequeueFailures++
		b.logger.Error("failed to requeue buffer",
			ports.Int("buffer", buf.Index()),
			ports.Err(err),
		)
	}
}

// Close stops requeuing. It waits for an in-progress delivery to finish.
func (b *DeliveryBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Stats returns a snapshot of the delivery counters.
func (b *DeliveryBridge) Stats() BridgeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
