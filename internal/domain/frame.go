package domain

import (
	"fmt"
	"image"
	"time"
)

// PixelFormat is a GenICam PFNC pixel format code.
// Bits 16-23 of the code hold the number of bits occupied by one pixel.
type PixelFormat uint32

const (
	PixelFormatMono8        PixelFormat = 0x01080001
	PixelFormatMono10       PixelFormat = 0x01100003
	PixelFormatMono10p      PixelFormat = 0x010A0046
	PixelFormatMono12       PixelFormat = 0x01100005
	PixelFormatMono12Packed PixelFormat = 0x010C0006
	PixelFormatMono12p      PixelFormat = 0x010C0047
	PixelFormatMono14       PixelFormat = 0x01100025
	PixelFormatMono16       PixelFormat = 0x01100007
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatMono8:        "Mono8",
	PixelFormatMono10:       "Mono10",
	PixelFormatMono10p:      "Mono10p",
	PixelFormatMono12:       "Mono12",
	PixelFormatMono12Packed: "Mono12Packed",
	PixelFormatMono12p:      "Mono12p",
	PixelFormatMono14:       "Mono14",
	PixelFormatMono16:       "Mono16",
}

// String returns the PFNC name of the format.
func (p PixelFormat) String() string {
	if name, ok := pixelFormatNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(0x%08X)", uint32(p))
}

// ParsePixelFormat returns the format with the given PFNC name.
func ParsePixelFormat(name string) (PixelFormat, error) {
	for f, n := range pixelFormatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidArgument, name)
}

// BitsPerPixel returns the number of bits one pixel occupies in memory.
func (p PixelFormat) BitsPerPixel() int {
	return int(uint32(p)>>16) & 0xFF
}

// ImageSize returns the number of bytes a width x height image occupies.
func (p PixelFormat) ImageSize(width, height int) int {
	bits := width * height * p.BitsPerPixel()
	return (bits + 7) / 8
}

// Frame is an immutable image delivered by the capture engine.
//
// The pixel bytes are owned by the frame; they are copied out of the
// delivering buffer, so a frame stays valid after its buffer is requeued.
// Callers MUST NOT modify the slice returned by Bytes.
type Frame struct {
	id        string
	seq       uint64
	engineID  uint64
	width     int
	height    int
	format    PixelFormat
	timestamp time.Time
	data      []byte
}

// NewFrame builds a Frame from a delivered buffer.
// Returns an error if the buffer is not complete or its metadata does not fit
// the buffer size.
func NewFrame(buf *FrameBuffer, seq uint64, id string, at time.Time) (*Frame, error) {
	if buf.Status != FrameComplete {
		return nil, fmt.Errorf("frame %d: status %s", buf.FrameID, buf.Status)
	}
	if buf.Width <= 0 || buf.Height <= 0 {
		return nil, fmt.Errorf("frame %d: invalid dimensions %dx%d", buf.FrameID, buf.Width, buf.Height)
	}
	if need := buf.Format.ImageSize(buf.Width, buf.Height); need > buf.Size() {
		return nil, fmt.Errorf("frame %d: %dx%d %s needs %d bytes, buffer holds %d",
			buf.FrameID, buf.Width, buf.Height, buf.Format, need, buf.Size())
	}

	data := make([]byte, buf.Size())
	copy(data, buf.Data())

	return &Frame{
		id:        id,
		seq:       seq,
		engineID:  buf.FrameID,
		width:     buf.Width,
		height:    buf.Height,
		format:    buf.Format,
		timestamp: at,
		data:      data,
	}, nil
}

// ID returns the trace id assigned at delivery.
func (f *Frame) ID() string { return f.id }

// Seq returns the delivery sequence number within the capture run.
func (f *Frame) Seq() uint64 { return f.seq }

// EngineFrameID returns the frame counter reported by the engine.
func (f *Frame) EngineFrameID() uint64 { return f.engineID }

// Width returns the image width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the image height in pixels.
func (f *Frame) Height() int { return f.height }

// Format returns the pixel format.
func (f *Frame) Format() PixelFormat { return f.format }

// Timestamp returns the delivery time.
func (f *Frame) Timestamp() time.Time { return f.timestamp }

// Len returns the payload size in bytes.
func (f *Frame) Len() int { return len(f.data) }

// Bytes returns the raw payload. The slice is shared and must not be modified.
func (f *Frame) Bytes() []byte { return f.data }

// Image returns the frame as a grayscale image.
//
// Mono8 frames map to *image.Gray sharing the frame memory. Unpacked 10 to 16
// bit formats (little-endian, two bytes per pixel) map to a converted
// *image.Gray16. Packed formats have no image representation.
func (f *Frame) Image() (image.Image, error) {
	rect := image.Rect(0, 0, f.width, f.height)

	switch f.format {
	case PixelFormatMono8:
		return &image.Gray{Pix: f.data[:f.width*f.height], Stride: f.width, Rect: rect}, nil

	case PixelFormatMono10, PixelFormatMono12, PixelFormatMono14, PixelFormatMono16:
		img := image.NewGray16(rect)
		for i := 0; i < f.width*f.height; i++ {
			// Little-endian on the wire, big-endian in image.Gray16
			img.Pix[2*i] = f.data[2*i+1]
			img.Pix[2*i+1] = f.data[2*i]
		}
		return img, nil

	default:
		return nil, fmt.Errorf("%w: pixel format %s has no image representation", ErrInvalidArgument, f.format)
	}
}
