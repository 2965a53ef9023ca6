package capture

import (
	"errors"
	"image"

	displays "github.com/kbinani/screenshot"
	primary "github.com/vova616/screenshot"
)

// displaysGrabber captures the bounding rectangle of all active displays.
type displaysGrabber struct{}

func (displaysGrabber) Name() string { return "displays" }

func (displaysGrabber) Grab() (*image.RGBA, error) {
	union := displaysBounds()
	if union.Empty() {
		return nil, errors.New("capture: no active displays")
	}
	img, err := displays.CaptureRect(union)
	if err != nil {
		return nil, err
	}
	return normalizeOrigin(img), nil
}

func displaysBounds() image.Rectangle {
	var union image.Rectangle
	for i := 0; i < displays.NumActiveDisplays(); i++ {
		union = union.Union(displays.GetDisplayBounds(i))
	}
	return union
}

// primaryGrabber captures the primary screen only.
type primaryGrabber struct{}

func (primaryGrabber) Name() string { return "primary" }

func (primaryGrabber) Grab() (*image.RGBA, error) {
	img, err := primary.CaptureScreen()
	if err != nil {
		return nil, err
	}
	return normalizeOrigin(img), nil
}

// normalizeOrigin rebases img so its bounds start at (0,0). Pixel offsets are
// relative to Rect.Min, so only the rectangle changes.
func normalizeOrigin(img *image.RGBA) *image.RGBA {
	if img == nil || img.Rect.Min == (image.Point{}) {
		return img
	}
	img.Rect = img.Rect.Sub(img.Rect.Min)
	return img
}
