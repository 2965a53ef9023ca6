package capture

import (
	"errors"
	"image"
	"time"
)

var (
	ErrQueueTimeout = errors.New("capture: queue pop timed out")
	ErrQueueClosed  = errors.New("capture: queue closed")
	ErrUnsupported  = errors.New("capture: backend unsupported on this platform")
)

// Frame is one captured screen image together with its sequence number and
// capture time. A Frame handed to another stage is never mutated afterwards;
// stages that need to write clone it first.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool { return f.Image == nil || f.Image.Rect.Empty() }

// Clone returns a deep copy with its own pixel buffer.
func (f Frame) Clone() Frame {
	out := f
	out.Image = CloneRGBA(f.Image)
	return out
}

// CloneRGBA copies img into a fresh buffer with the same bounds.
func CloneRGBA(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	out := &image.RGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

// FrameSource provides frames to a consumer. Frame applies the fallback rules
// of the capture service: a fresh frame when one arrives in time, otherwise the
// previous one, otherwise a direct grab.
type FrameSource interface {
	Frame(timeout time.Duration) (Frame, error)
	Running() bool
}
