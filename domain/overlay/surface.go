package overlay

import (
	"errors"
	"image"
)

var (
	ErrWindowCreate    = errors.New("overlay: window creation failed")
	ErrUnsupported     = errors.New("overlay: not supported on this platform")
	ErrHookUnavailable = errors.New("overlay: activation hook unavailable")
)

// Handle identifies a native window.
type Handle uintptr

// Surface is the native full-screen window an overlay draws into. All methods
// except Handle are called from the render goroutine, which is locked to its
// OS thread for the lifetime of the surface.
type Surface interface {
	// Create opens a borderless, non-activating window covering bounds.
	Create(bounds image.Rectangle) (Handle, error)
	// Pump drains pending native events and reports whether a close was
	// requested (close key or a window close message).
	Pump() (closeRequested bool)
	// Present draws img stretched over the window; nil clears to black.
	Present(img *image.RGBA) error
	Destroy() error
}

// Protector applies and queries window protection flags.
type Protector interface {
	ExcludeFromCapture(h Handle) error
	CaptureExcluded(h Handle) (bool, error)
	SetClickThrough(h Handle, enabled bool) error
	ClickThrough(h Handle) (bool, error)
}

// ZOrder moves a window to the top of the topmost band without activating it.
type ZOrder interface {
	Foreground() Handle
	// Raise reasserts h as topmost. async requests a non-blocking reorder,
	// used from hook callbacks running on the OS dispatch thread.
	Raise(h Handle, async bool) error
}

// Platform bundles the native capabilities an overlay needs.
type Platform struct {
	NewSurface func() Surface
	Protector  Protector
	ZOrder     ZOrder
	Watchers   func() []ActivationWatcher // preferred first
	Screen     func() image.Rectangle
}
