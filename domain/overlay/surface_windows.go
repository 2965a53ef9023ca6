//go:build windows

package overlay

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

const overlayClassName = "ScreenMosaicOverlay"

var (
	classOnce sync.Once
	classErr  error

	surfacesMu sync.Mutex
	surfaces   = map[uintptr]*nativeSurface{}
)

// registerClass registers the window class and its WndProc once per process;
// callbacks created with NewCallback are never released.
func registerClass() error {
	classOnce.Do(func() {
		name, err := windows.UTF16PtrFromString(overlayClassName)
		if err != nil {
			classErr = err
			return
		}
		wc := wndClassEx{
			WndProc:   windows.NewCallback(wndProc),
			Instance:  moduleHandle(),
			ClassName: name,
		}
		wc.Size = uint32(unsafe.Sizeof(wc))
		if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			classErr = fmt.Errorf("RegisterClassExW: %w", err)
		}
	})
	return classErr
}

func wndProc(hwnd, message, wparam, lparam uintptr) uintptr {
	switch uint32(message) {
	case wmNCHitTest:
		return htTransparent
	case wmMouseActivate:
		return maNoActivate
	case wmEraseBkgnd:
		return 1
	case wmClose:
		surfacesMu.Lock()
		s := surfaces[hwnd]
		surfacesMu.Unlock()
		if s != nil {
			s.closeReq.Store(true)
		}
		return 0
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, message, wparam, lparam)
	return r
}

// nativeSurface is a layered popup window drawn with StretchDIBits.
type nativeSurface struct {
	closeVK  byte
	hwnd     uintptr
	w, h     int
	closeReq atomic.Bool
	keyDown  bool
	bgra     []byte
}

func (s *nativeSurface) Create(bounds image.Rectangle) (Handle, error) {
	if err := registerClass(); err != nil {
		return 0, err
	}
	className, _ := windows.UTF16PtrFromString(overlayClassName)
	title, _ := windows.UTF16PtrFromString("Screen Mosaic")
	ex := uintptr(wsExTopmost | wsExToolWindow | wsExNoActivate | wsExLayered)
	hwnd, _, err := procCreateWindowExW.Call(
		ex,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(title)),
		wsPopup,
		uintptr(bounds.Min.X), uintptr(bounds.Min.Y),
		uintptr(bounds.Dx()), uintptr(bounds.Dy()),
		0, 0, moduleHandle(), 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW: %w", err)
	}
	s.hwnd, s.w, s.h = hwnd, bounds.Dx(), bounds.Dy()
	surfacesMu.Lock()
	surfaces[hwnd] = s
	surfacesMu.Unlock()

	// Layered windows stay invisible until their attributes are set.
	procSetLayeredWindowAttributes.Call(hwnd, 0, 255, lwaAlpha)
	procShowWindow.Call(hwnd, swShowNoActivate)
	return Handle(hwnd), nil
}

// Pump dispatches window messages and polls the close key. The overlay never
// has keyboard focus, so the key is read from the global async state.
func (s *nativeSurface) Pump() bool {
	pumpMessages()
	state, _, _ := procGetAsyncKeyState.Call(uintptr(s.closeVK))
	down := state&0x8000 != 0
	if down && !s.keyDown {
		s.closeReq.Store(true)
	}
	s.keyDown = down
	return s.closeReq.Load()
}

func (s *nativeSurface) Present(img *image.RGBA) error {
	hdc, _, err := procGetDC.Call(s.hwnd)
	if hdc == 0 {
		return fmt.Errorf("GetDC: %w", err)
	}
	defer procReleaseDC.Call(s.hwnd, hdc)

	if img == nil || img.Rect.Empty() {
		if r, _, err := procPatBlt.Call(hdc, 0, 0, uintptr(s.w), uintptr(s.h), blackness); r == 0 {
			return fmt.Errorf("PatBlt: %w", err)
		}
		return nil
	}

	iw, ih := img.Rect.Dx(), img.Rect.Dy()
	n := iw * ih * 4
	if cap(s.bgra) < n {
		s.bgra = make([]byte, n)
	}
	buf := s.bgra[:n]
	for y := 0; y < ih; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+iw*4]
		dst := buf[y*iw*4 : (y+1)*iw*4]
		for i := 0; i < len(src); i += 4 {
			dst[i+0] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i+0]
			dst[i+3] = 0xFF
		}
	}

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(iw)
	bi.Header.BiHeight = -int32(ih) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiSizeImage = uint32(n)

	procSetStretchBltMode.Call(hdc, colorOnColor)
	r, _, err := procStretchDIBits.Call(hdc,
		0, 0, uintptr(s.w), uintptr(s.h),
		0, 0, uintptr(iw), uintptr(ih),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&bi)),
		dibRGBColors, srccopy)
	if r == 0 {
		return fmt.Errorf("StretchDIBits: %w", err)
	}
	return nil
}

func (s *nativeSurface) Destroy() error {
	if s.hwnd == 0 {
		return nil
	}
	surfacesMu.Lock()
	delete(surfaces, s.hwnd)
	surfacesMu.Unlock()
	r, _, err := procDestroyWindow.Call(s.hwnd)
	s.hwnd = 0
	if r == 0 {
		return fmt.Errorf("DestroyWindow: %w", err)
	}
	return nil
}
