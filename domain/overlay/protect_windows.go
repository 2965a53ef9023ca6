//go:build windows

package overlay

import (
	"fmt"
	"unsafe"
)

type winProtector struct{}

// ExcludeFromCapture hides the window from screen capture (Windows 10 2004+).
func (winProtector) ExcludeFromCapture(h Handle) error {
	if err := procSetWindowDisplayAffinity.Find(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if r, _, err := procSetWindowDisplayAffinity.Call(uintptr(h), wdaExcludeFromCapture); r == 0 {
		return fmt.Errorf("SetWindowDisplayAffinity: %w", err)
	}
	return nil
}

func (winProtector) CaptureExcluded(h Handle) (bool, error) {
	var aff uint32
	if r, _, err := procGetWindowDisplayAffinity.Call(uintptr(h), uintptr(unsafe.Pointer(&aff))); r == 0 {
		return false, fmt.Errorf("GetWindowDisplayAffinity: %w", err)
	}
	return aff == wdaExcludeFromCapture, nil
}

// SetClickThrough toggles WS_EX_TRANSPARENT on a layered window, keeping it
// fully opaque.
func (winProtector) SetClickThrough(h Handle, enabled bool) error {
	ex, _, _ := procGetWindowLongW.Call(uintptr(h), gwlExStyle)
	style := uint32(ex)
	if enabled {
		style |= wsExLayered | wsExTransparent
	} else {
		style &^= wsExTransparent
	}
	procSetWindowLongW.Call(uintptr(h), gwlExStyle, uintptr(style))
	if !enabled {
		return nil
	}
	if r, _, err := procSetLayeredWindowAttributes.Call(uintptr(h), 0, 255, lwaAlpha); r == 0 {
		return fmt.Errorf("SetLayeredWindowAttributes: %w", err)
	}
	return nil
}

func (winProtector) ClickThrough(h Handle) (bool, error) {
	ex, _, err := procGetWindowLongW.Call(uintptr(h), gwlExStyle)
	if ex == 0 {
		return false, fmt.Errorf("GetWindowLongW: %w", err)
	}
	want := uint32(wsExLayered | wsExTransparent)
	return uint32(ex)&want == want, nil
}

type winZOrder struct{}

func (winZOrder) Foreground() Handle {
	h, _, _ := procGetForegroundWindow.Call()
	return Handle(h)
}

// Raise moves h to the top of the topmost band without activating it.
func (winZOrder) Raise(h Handle, async bool) error {
	flags := uintptr(swpNoMove | swpNoSize | swpNoActivate)
	if async {
		flags |= swpAsyncWindowPos
	}
	if r, _, err := procSetWindowPos.Call(uintptr(h), hwndTopmost, 0, 0, 0, 0, flags); r == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// Title is used for diagnostics when the watchdog corrects the order.
func (winZOrder) Title(h Handle) string { return windowTitle(uintptr(h)) }
