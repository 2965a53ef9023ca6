package overlay

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeDesktop models window flags and the z-order of a desktop.
type fakeDesktop struct {
	mu           sync.Mutex
	excluded     map[Handle]bool
	clickThrough map[Handle]bool
	top          Handle
	fg           Handle

	raises, asyncRaises int
	clickSets           int
	clickIgnored        int // SetClickThrough(true) calls that silently do nothing
	noExclusion         bool
}

func newFakeDesktop() *fakeDesktop {
	return &fakeDesktop{excluded: map[Handle]bool{}, clickThrough: map[Handle]bool{}}
}

func (d *fakeDesktop) ExcludeFromCapture(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.noExclusion {
		return errors.New("unsupported os build")
	}
	d.excluded[h] = true
	return nil
}

func (d *fakeDesktop) CaptureExcluded(h Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.excluded[h], nil
}

func (d *fakeDesktop) SetClickThrough(h Handle, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clickSets++
	if enabled && d.clickIgnored > 0 {
		d.clickIgnored--
		return nil
	}
	d.clickThrough[h] = enabled
	return nil
}

func (d *fakeDesktop) ClickThrough(h Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clickThrough[h], nil
}

func (d *fakeDesktop) Foreground() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fg
}

func (d *fakeDesktop) Raise(h Handle, async bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.top = h
	if async {
		d.asyncRaises++
	} else {
		d.raises++
	}
	return nil
}

// activate simulates another window becoming active and covering the overlay.
func (d *fakeDesktop) activate(h Handle) {
	d.mu.Lock()
	d.top, d.fg = h, h
	d.mu.Unlock()
}

func (d *fakeDesktop) topmost() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.top
}

// destroy mimics the OS dropping per-window flags with the window.
func (d *fakeDesktop) destroy(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.excluded, h)
	delete(d.clickThrough, h)
}

var nextHandle atomic.Uintptr

type fakeSurface struct {
	desktop   *fakeDesktop
	createErr error
	h         Handle
	closeReq  *atomic.Bool
	presents  atomic.Int64
	lastMu    sync.Mutex
	last      *image.RGBA
}

func (s *fakeSurface) Create(image.Rectangle) (Handle, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.h = Handle(1000 + nextHandle.Add(1))
	return s.h, nil
}

func (s *fakeSurface) Pump() bool { return s.closeReq != nil && s.closeReq.Load() }

func (s *fakeSurface) Present(img *image.RGBA) error {
	s.presents.Add(1)
	s.lastMu.Lock()
	s.last = img
	s.lastMu.Unlock()
	return nil
}

func (s *fakeSurface) lastFrame() *image.RGBA {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.last
}

func (s *fakeSurface) Destroy() error {
	s.desktop.destroy(s.h)
	return nil
}

type fakeWatcher struct {
	name     string
	startErr error
	mu       sync.Mutex
	fire     func(Handle)
	stopped  int
}

func (w *fakeWatcher) Name() string { return w.name }

func (w *fakeWatcher) Start(_ Handle, on func(Handle)) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.mu.Lock()
	w.fire = on
	w.mu.Unlock()
	return nil
}

func (w *fakeWatcher) Stop(time.Duration) error {
	w.mu.Lock()
	w.fire = nil
	w.stopped++
	w.mu.Unlock()
	return nil
}

// activated delivers an activation event the way an OS hook would.
func (w *fakeWatcher) activated(h Handle) {
	w.mu.Lock()
	fn := w.fire
	w.mu.Unlock()
	if fn != nil {
		fn(h)
	}
}

func fakePlatform(d *fakeDesktop, s *fakeSurface, watchers ...ActivationWatcher) Platform {
	return Platform{
		NewSurface: func() Surface { return s },
		Protector:  d,
		ZOrder:     d,
		Watchers:   func() []ActivationWatcher { return watchers },
		Screen:     func() image.Rectangle { return image.Rect(0, 0, 320, 200) },
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
