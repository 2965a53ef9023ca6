// Package mosaic pixelates detected regions of a frame.
package mosaic

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/soocke/screen-mosaic-go/domain/capture"
	"github.com/soocke/screen-mosaic-go/domain/detection"
)

const (
	MinStrength = 1
	MaxStrength = 50
)

// Result is the processed frame plus how many regions were pixelated.
type Result struct {
	Frame   capture.Frame
	Applied int
}

// ClampStrength limits s to [MinStrength, MaxStrength].
func ClampStrength(s int) int {
	if s < MinStrength {
		return MinStrength
	}
	if s > MaxStrength {
		return MaxStrength
	}
	return s
}

// TargetSet is a label lookup built once per session.
type TargetSet map[string]struct{}

// NewTargetSet trims labels and drops empties.
func NewTargetSet(labels []string) TargetSet {
	ts := make(TargetSet, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			ts[l] = struct{}{}
		}
	}
	return ts
}

// Has reports whether label is a target.
func (ts TargetSet) Has(label string) bool {
	_, ok := ts[strings.TrimSpace(label)]
	return ok
}

// Apply returns a copy of f in which every detection whose label is in
// targets is pixelated. The input frame is never modified. Boxes are clipped
// to the frame; zero-area boxes are skipped.
func Apply(f capture.Frame, detections []detection.Detection, targets TargetSet, strength int) Result {
	out := Result{Frame: f}
	if f.Empty() || len(detections) == 0 || len(targets) == 0 {
		return out
	}
	strength = ClampStrength(strength)
	var dst *image.RGBA
	for _, d := range detections {
		if !targets.Has(d.Label) {
			continue
		}
		box := d.Box.Canon().Intersect(f.Image.Rect)
		if box.Empty() {
			continue
		}
		if dst == nil {
			dst = capture.CloneRGBA(f.Image)
		}
		Pixelate(dst, box, strength)
		out.Applied++
	}
	if dst != nil {
		out.Frame.Image = dst
	}
	return out
}

// Pixelate replaces region r of img in place with a block mosaic: the region is
// shrunk to max(1, dim/strength) per axis with linear filtering and enlarged
// back with nearest-neighbour sampling.
func Pixelate(img *image.RGBA, r image.Rectangle, strength int) {
	r = r.Intersect(img.Rect)
	if r.Empty() {
		return
	}
	strength = ClampStrength(strength)
	w, h := r.Dx(), r.Dy()
	sw := max(1, w/strength)
	sh := max(1, h/strength)

	region := imaging.Crop(img, r)
	small := imaging.Resize(region, sw, sh, imaging.Linear)
	blocks := imaging.Resize(small, w, h, imaging.NearestNeighbor)
	draw.Draw(img, r, blocks, image.Point{}, draw.Src)
}
