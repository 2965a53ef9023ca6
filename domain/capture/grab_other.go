//go:build !windows

package capture

import "image"

func newGDIGrabber() (Grabber, error) { return nil, ErrUnsupported }

// VirtualScreen returns the union of all active displays.
func VirtualScreen() image.Rectangle {
	return displaysBounds()
}
