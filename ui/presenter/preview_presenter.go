package presenter

import (
	"image"

	"github.com/soocke/screen-mosaic-go/domain/capture"
	"github.com/soocke/screen-mosaic-go/ui/images"
)

// FrameSource supplies the most recent processed frame.
type FrameSource interface {
	LatestFrame() (capture.Frame, bool)
}

// PreviewView shows a thumbnail.
type PreviewView interface {
	UpdatePreview(img image.Image)
}

// PreviewPresenter pushes a scaled thumbnail of the processed output every
// Every ticks when a new frame is available.
type PreviewPresenter struct {
	src     FrameSource
	view    PreviewView
	maxW    int
	maxH    int
	Every   int
	ticks   int
	lastSeq uint64
}

func NewPreviewPresenter(src FrameSource, view PreviewView, maxW, maxH int) *PreviewPresenter {
	return &PreviewPresenter{src: src, view: view, maxW: maxW, maxH: maxH, Every: 5}
}

// Tick updates the preview when due.
func (p *PreviewPresenter) Tick() {
	if p == nil || p.src == nil || p.view == nil {
		return
	}
	p.ticks++
	if p.Every > 1 && p.ticks%p.Every != 0 {
		return
	}
	f, ok := p.src.LatestFrame()
	if !ok || f.Empty() || f.Sequence == p.lastSeq {
		return
	}
	p.lastSeq = f.Sequence
	p.view.UpdatePreview(images.ScaleToFit(f.Image, p.maxW, p.maxH))
}

// Reset forgets the last shown frame.
func (p *PreviewPresenter) Reset() {
	if p != nil {
		p.lastSeq = 0
	}
}
