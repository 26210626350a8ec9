package domain

// FrameStatus is the completion status the engine reports with a delivered buffer.
type FrameStatus int

const (
	FrameComplete FrameStatus = iota
	FrameIncomplete
	FrameTooSmall
	FrameInvalid
)

// String returns a human-readable representation of the status.
func (s FrameStatus) String() string {
	switch s {
	case FrameComplete:
		return "Complete"
	case FrameIncomplete:
		return "Incomplete"
	case FrameTooSmall:
		return "TooSmall"
	case FrameInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// FrameBuffer is a fixed-size memory region cycled between the buffer pool and
// the capture engine.
//
// While a buffer is queued to the engine, only the engine may write to it.
// The engine fills Data and the delivery metadata, then hands the buffer back
// through the delivery handler. The size never changes after allocation.
type FrameBuffer struct {
	index int
	data  []byte

	// Delivery metadata, written by the engine before the buffer is handed back.
	Width   int
	Height  int
	Format  PixelFormat
	Status  FrameStatus
	FrameID uint64
}

// NewFrameBuffer allocates a buffer of size bytes at the given pool index.
func NewFrameBuffer(index, size int) *FrameBuffer {
	return &FrameBuffer{
		index: index,
		data:  make([]byte, size),
	}
}

// Index returns the position of the buffer in its pool.
func (b *FrameBuffer) Index() int {
	return b.index
}

// Data returns the underlying memory. Only the current owner may touch it.
func (b *FrameBuffer) Data() []byte {
	return b.data
}

// Size returns the buffer size in bytes.
func (b *FrameBuffer) Size() int {
	return len(b.data)
}

// ResetMetadata clears delivery metadata before the buffer is queued again.
func (b *FrameBuffer) ResetMetadata() {
	b.Width = 0
	b.Height = 0
	b.Format = 0
	b.Status = FrameInvalid
	b.FrameID = 0
}
