package capture

import (
	"fmt"
	"image"
	"runtime"
	"strings"
)

// Grabber captures the whole desktop in one image. Implementations return a
// freshly allocated image whose origin is (0,0).
type Grabber interface {
	Grab() (*image.RGBA, error)
	Name() string
}

// GrabberFunc adapts a function to Grabber.
type GrabberFunc func() (*image.RGBA, error)

func (f GrabberFunc) Grab() (*image.RGBA, error) { return f() }
func (f GrabberFunc) Name() string                { return "func" }

// NewGrabber returns the backend registered under name. "auto" picks gdi on
// Windows and displays elsewhere.
func NewGrabber(name string) (Grabber, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		if runtime.GOOS == "windows" {
			name = "gdi"
		} else {
			name = "displays"
		}
	}
	switch name {
	case "gdi":
		return newGDIGrabber()
	case "displays":
		return displaysGrabber{}, nil
	case "primary":
		return primaryGrabber{}, nil
	}
	return nil, fmt.Errorf("capture: unknown backend %q", name)
}
