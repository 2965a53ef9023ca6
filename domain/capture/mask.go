package capture

import (
	"image"
	"sync/atomic"
)

// ExclusionList is the live set of rectangles blanked out of every grab.
// Writers replace the whole list; the capture loop reads a snapshot per frame.
type ExclusionList struct {
	rects atomic.Pointer[[]image.Rectangle]
}

// NewExclusionList returns a list seeded with rects.
func NewExclusionList(rects []image.Rectangle) *ExclusionList {
	l := &ExclusionList{}
	l.Set(rects)
	return l
}

// Set replaces the list. Empty rectangles are dropped.
func (l *ExclusionList) Set(rects []image.Rectangle) {
	cp := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		r = r.Canon()
		if !r.Empty() {
			cp = append(cp, r)
		}
	}
	l.rects.Store(&cp)
}

// Snapshot returns the current list. The slice must not be modified.
func (l *ExclusionList) Snapshot() []image.Rectangle {
	if l == nil {
		return nil
	}
	p := l.rects.Load()
	if p == nil {
		return nil
	}
	return *p
}

// MaskRegions zeroes every pixel of img inside any of rects. Regions are
// clipped to the image bounds; regions fully outside are ignored. Regions are
// in frame coordinates relative to img.Rect.Min.
func MaskRegions(img *image.RGBA, rects []image.Rectangle) int {
	if img == nil {
		return 0
	}
	masked := 0
	b := img.Rect
	for _, r := range rects {
		r = r.Add(b.Min).Intersect(b)
		if r.Empty() {
			continue
		}
		rowBytes := r.Dx() * 4
		for y := r.Min.Y; y < r.Max.Y; y++ {
			off := img.PixOffset(r.Min.X, y)
			clear(img.Pix[off : off+rowBytes])
		}
		masked++
	}
	return masked
}
