package overlay

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/screen-mosaic-go/domain/capture"
)

func newTestWindow(d *fakeDesktop, s *fakeSurface, watchers ...ActivationWatcher) *Window {
	return NewWindow(fakePlatform(d, s, watchers...), Options{FPS: 60, GuardInterval: 10 * time.Millisecond}, discardLogger())
}

func TestWindow_ShowAcquiresProtectionHideReleases(t *testing.T) {
	d := newFakeDesktop()
	s := &fakeSurface{desktop: d}
	w := newTestWindow(d, s, &fakeWatcher{name: "hook"})

	if got := w.Protection(); got != Unprotected {
		t.Fatalf("new window should be unprotected, got %s", got)
	}
	if err := w.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}
	h := w.Handle()
	want := CaptureExcluded | ClickThroughEnabled | TopmostEnforced
	if got := w.Protection(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if ok, _ := d.CaptureExcluded(h); !ok {
		t.Fatalf("capture exclusion flag not set on window")
	}
	if ok, _ := d.ClickThrough(h); !ok {
		t.Fatalf("click-through flag not set on window")
	}
	if !w.IsOpen() {
		t.Fatalf("window should be open after show")
	}

	if err := w.Hide(); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if got := w.Protection(); got != Unprotected {
		t.Fatalf("expected unprotected after hide, got %s", got)
	}
	if ok, _ := d.CaptureExcluded(h); ok {
		t.Fatalf("capture exclusion should be cleared after hide")
	}
	if ok, _ := d.ClickThrough(h); ok {
		t.Fatalf("click-through should be cleared after hide")
	}
	if w.IsOpen() {
		t.Fatalf("window should be closed after hide")
	}
	if err := w.Hide(); err != nil {
		t.Fatalf("second hide should be a no-op: %v", err)
	}
}

func TestWindow_ClickThroughRetriedOnce(t *testing.T) {
	d := newFakeDesktop()
	d.clickIgnored = 1
	s := &fakeSurface{desktop: d}
	w := newTestWindow(d, s)
	if err := w.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}
	defer w.Hide()
	if !w.Protection().Has(ClickThroughEnabled) {
		t.Fatalf("retry should have enabled click-through")
	}
	if d.clickSets != 3 {
		t.Fatalf("expected set, clear, set; got %d calls", d.clickSets)
	}
}

func TestWindow_ClickThroughGivesUpAfterRetry(t *testing.T) {
	d := newFakeDesktop()
	d.clickIgnored = 5
	s := &fakeSurface{desktop: d}
	w := newTestWindow(d, s)
	if err := w.Show(); err != nil {
		t.Fatalf("show should succeed with degraded protection: %v", err)
	}
	defer w.Hide()
	if w.Protection().Has(ClickThroughEnabled) {
		t.Fatalf("click-through should not be reported")
	}
	if d.clickSets != 3 {
		t.Fatalf("expected exactly one retry, got %d calls", d.clickSets)
	}
}

func TestWindow_CaptureExclusionFailureDegrades(t *testing.T) {
	d := newFakeDesktop()
	d.noExclusion = true
	s := &fakeSurface{desktop: d}
	w := newTestWindow(d, s)
	if err := w.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}
	defer w.Hide()
	p := w.Protection()
	if p.Has(CaptureExcluded) || !p.Has(ClickThroughEnabled) || !p.Has(TopmostEnforced) {
		t.Fatalf("unexpected protection %s", p)
	}
}

func TestWindow_CreateFailure(t *testing.T) {
	d := newFakeDesktop()
	s := &fakeSurface{desktop: d, createErr: errors.New("no desktop")}
	w := newTestWindow(d, s)
	err := w.Show()
	if !errors.Is(err, ErrWindowCreate) {
		t.Fatalf("expected ErrWindowCreate, got %v", err)
	}
	if w.IsOpen() || w.Protection() != Unprotected {
		t.Fatalf("failed show must leave window closed and unprotected")
	}
}

func TestWindow_UnsupportedPlatform(t *testing.T) {
	w := NewWindow(Platform{}, Options{Bounds: image.Rect(0, 0, 10, 10)}, nil)
	err := w.Show()
	if !errors.Is(err, ErrWindowCreate) || !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected create+unsupported error, got %v", err)
	}
}

func TestWindow_CloseRequestClearsIsOpen(t *testing.T) {
	d := newFakeDesktop()
	var closeReq atomic.Bool
	s := &fakeSurface{desktop: d, closeReq: &closeReq}
	w := newTestWindow(d, s)
	if err := w.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}
	defer w.Hide()
	closeReq.Store(true)
	if !waitFor(time.Second, func() bool { return !w.IsOpen() }) {
		t.Fatalf("close request not surfaced")
	}
}

func TestWindow_UpdateCopiesFrame(t *testing.T) {
	d := newFakeDesktop()
	s := &fakeSurface{desktop: d}
	w := newTestWindow(d, s)
	if err := w.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}
	defer w.Hide()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Pix[0] = 7
	w.Update(capture.Frame{Image: img, Sequence: 1})
	img.Pix[0] = 99

	if !waitFor(time.Second, func() bool { return s.lastFrame() != nil }) {
		t.Fatalf("frame never presented")
	}
	if got := s.lastFrame().Pix[0]; got != 7 {
		t.Fatalf("presented frame aliased caller buffer: %d", got)
	}
	if w.Stats().Presented == 0 {
		t.Fatalf("presented counter not updated")
	}
}

func TestWindow_ReshowStartsUnprotected(t *testing.T) {
	d := newFakeDesktop()
	s := &fakeSurface{desktop: d}
	w := newTestWindow(d, s)
	if err := w.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}
	first := w.Handle()
	w.Hide()
	if err := w.Show(); err != nil {
		t.Fatalf("reshow: %v", err)
	}
	defer w.Hide()
	if w.Handle() == first {
		t.Fatalf("expected a new native window")
	}
	if ok, _ := d.CaptureExcluded(w.Handle()); !ok {
		t.Fatalf("protection not re-acquired on reshow")
	}
}
