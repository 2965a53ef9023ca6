package detection

import (
	"image"
)

// Detection is one labelled bounding box produced by an Engine.
type Detection struct {
	Label      string
	Confidence float64
	Box        image.Rectangle
}

// Valid reports whether the box has positive area and confidence lies in [0,1].
func (d Detection) Valid() bool {
	return d.Box.Dx() > 0 && d.Box.Dy() > 0 && d.Confidence >= 0 && d.Confidence <= 1
}

// Engine turns a frame into detections. Detect is called synchronously once
// per frame from the processing goroutine and must not retain img.
type Engine interface {
	Detect(img *image.RGBA, confidence float64) ([]Detection, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(img *image.RGBA, confidence float64) ([]Detection, error)

func (f EngineFunc) Detect(img *image.RGBA, confidence float64) ([]Detection, error) {
	return f(img, confidence)
}

// Nop never detects anything.
type Nop struct{}

func (Nop) Detect(*image.RGBA, float64) ([]Detection, error) { return nil, nil }

// Static returns a fixed set of detections, filtered by confidence and clipped
// to the frame.
type Static []Detection

func (s Static) Detect(img *image.RGBA, confidence float64) ([]Detection, error) {
	if img == nil {
		return nil, nil
	}
	out := make([]Detection, 0, len(s))
	for _, d := range s {
		if d.Confidence < confidence {
			continue
		}
		d.Box = d.Box.Intersect(img.Rect)
		if d.Valid() {
			out = append(out, d)
		}
	}
	return out, nil
}

// filterValid drops detections that are invalid or below the threshold.
func filterValid(in []Detection, confidence float64) []Detection {
	out := make([]Detection, 0, len(in))
	for _, d := range in {
		if d.Valid() && d.Confidence >= confidence {
			out = append(out, d)
		}
	}
	return out
}
