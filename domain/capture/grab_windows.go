//go:build windows

package capture

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// GDI capture of the virtual desktop. Windows with WDA_EXCLUDEFROMCAPTURE
// set are left out by the compositor, so the overlay never sees itself.

const (
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCxVirtualScreen = 78
	smCyVirtualScreen = 79

	ropSrcCopy    = 0x00CC0020
	ropCaptureBlt = 0x40000000
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	getDC            = user32.NewProc("GetDC")
	releaseDC        = user32.NewProc("ReleaseDC")
	getSystemMetrics = user32.NewProc("GetSystemMetrics")

	createCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	createCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	deleteDC               = gdi32.NewProc("DeleteDC")
	deleteObject           = gdi32.NewProc("DeleteObject")
	selectObject           = gdi32.NewProc("SelectObject")
	bitBlt                 = gdi32.NewProc("BitBlt")
	getDIBits              = gdi32.NewProc("GetDIBits")
)

// dibHeader is BITMAPINFOHEADER followed by room for one colour entry.
type dibHeader struct {
	size          uint32
	width         int32
	height        int32
	planes        uint16
	bitCount      uint16
	compression   uint32
	sizeImage     uint32
	xPelsPerMeter int32
	yPelsPerMeter int32
	clrUsed       uint32
	clrImportant  uint32
	_             [4]byte
}

// gdiGrabber keeps one memory DC and bitmap sized to the virtual screen and
// rebuilds them when the desktop geometry changes.
type gdiGrabber struct {
	mu    sync.Mutex
	memDC uintptr
	bmp   uintptr
	size  image.Point
	bgra  []byte
}

func newGDIGrabber() (Grabber, error) {
	if err := getDIBits.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &gdiGrabber{}, nil
}

func (*gdiGrabber) Name() string { return "gdi" }

// Grab copies every monitor into a new image anchored at (0,0).
func (g *gdiGrabber) Grab() (*image.RGBA, error) {
	vs := VirtualScreen()
	if vs.Empty() {
		return nil, fmt.Errorf("capture: empty virtual screen %v", vs)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	screen, _, err := getDC.Call(0)
	if screen == 0 {
		return nil, fmt.Errorf("capture: GetDC: %w", err)
	}
	defer releaseDC.Call(0, screen)

	if err := g.ensure(screen, vs.Size()); err != nil {
		return nil, err
	}
	if err := g.blit(screen, vs); err != nil {
		return nil, err
	}
	return g.read(screen)
}

func (g *gdiGrabber) ensure(screen uintptr, size image.Point) error {
	if g.memDC != 0 && g.size == size {
		return nil
	}
	g.release()
	dc, _, err := createCompatibleDC.Call(screen)
	if dc == 0 {
		return fmt.Errorf("capture: CreateCompatibleDC: %w", err)
	}
	bmp, _, err := createCompatibleBitmap.Call(screen, uintptr(size.X), uintptr(size.Y))
	if bmp == 0 {
		deleteDC.Call(dc)
		return fmt.Errorf("capture: CreateCompatibleBitmap %v: %w", size, err)
	}
	selectObject.Call(dc, bmp)
	g.memDC, g.bmp, g.size = dc, bmp, size
	g.bgra = make([]byte, size.X*size.Y*4)
	return nil
}

func (g *gdiGrabber) release() {
	if g.memDC != 0 {
		deleteDC.Call(g.memDC)
	}
	if g.bmp != 0 {
		deleteObject.Call(g.bmp)
	}
	g.memDC, g.bmp, g.size, g.bgra = 0, 0, image.Point{}, nil
}

func (g *gdiGrabber) blit(screen uintptr, vs image.Rectangle) error {
	ok, _, err := bitBlt.Call(g.memDC, 0, 0, uintptr(g.size.X), uintptr(g.size.Y), screen,
		uintptr(int32(vs.Min.X)), uintptr(int32(vs.Min.Y)), ropSrcCopy|ropCaptureBlt)
	if ok == 0 {
		return fmt.Errorf("capture: BitBlt %v: %w", vs, err)
	}
	return nil
}

// read pulls the bitmap as top-down 32-bit BGRA and swizzles it to RGBA.
func (g *gdiGrabber) read(screen uintptr) (*image.RGBA, error) {
	w, h := g.size.X, g.size.Y
	hdr := dibHeader{width: int32(w), height: -int32(h), planes: 1, bitCount: 32}
	hdr.size = uint32(unsafe.Offsetof(hdr.clrImportant) + unsafe.Sizeof(hdr.clrImportant))
	lines, _, err := getDIBits.Call(screen, g.bmp, 0, uintptr(h),
		uintptr(unsafe.Pointer(&g.bgra[0])), uintptr(unsafe.Pointer(&hdr)), 0)
	if int(lines) != h {
		return nil, fmt.Errorf("capture: GetDIBits read %d of %d lines: %w", lines, h, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(g.bgra); i += 4 {
		img.Pix[i] = g.bgra[i+2]
		img.Pix[i+1] = g.bgra[i+1]
		img.Pix[i+2] = g.bgra[i]
		img.Pix[i+3] = 0xFF
	}
	return img, nil
}

// VirtualScreen is the desktop rectangle spanning all monitors in screen
// coordinates. Its origin may be negative.
func VirtualScreen() image.Rectangle {
	metric := func(idx uintptr) int {
		v, _, _ := getSystemMetrics.Call(idx)
		return int(int32(v))
	}
	x, y := metric(smXVirtualScreen), metric(smYVirtualScreen)
	return image.Rect(x, y, x+metric(smCxVirtualScreen), y+metric(smCyVirtualScreen))
}
