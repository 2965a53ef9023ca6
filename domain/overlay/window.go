package overlay

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/soocke/screen-mosaic-go/domain/capture"
)

const (
	MinFPS = 10
	MaxFPS = 60

	defaultCreateTimeout = 3 * time.Second
	defaultStopTimeout   = time.Second
)

// Options configures a Window. Zero values select defaults.
type Options struct {
	FPS           int
	Bounds        image.Rectangle // empty selects the platform screen
	GuardInterval time.Duration
	CreateTimeout time.Duration
	StopTimeout   time.Duration
}

// Stats reports render and protection state.
type Stats struct {
	FPS        float64
	Presented  uint64
	Protection Protection
	Guard      GuardStats
}

// Window is a full-screen overlay that renders the latest frame handed to
// Update. Show creates the native window and acquires protection; Hide
// releases everything. A Window may be shown again after Hide and always
// starts Unprotected.
type Window struct {
	platform Platform
	opts     Options
	logger   *slog.Logger

	frameMu sync.Mutex
	latest  *image.RGBA

	stateMu    sync.Mutex
	shown      bool
	handle     Handle
	guard      *Guard
	stopRender chan struct{}
	renderDone chan struct{}

	open      atomic.Bool
	prot      atomic.Uint32
	presented atomic.Uint64
	fpsBits   atomic.Uint64

	errLog rate.Sometimes
}

// NewWindow constructs an overlay on platform p.
func NewWindow(p Platform, opts Options, logger *slog.Logger) *Window {
	if opts.FPS == 0 {
		opts.FPS = 30
	}
	opts.FPS = min(max(opts.FPS, MinFPS), MaxFPS)
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = defaultCreateTimeout
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &Window{platform: p, opts: opts, logger: logger, errLog: rate.Sometimes{Interval: 2 * time.Second}}
}

type createResult struct {
	h   Handle
	err error
}

// Show creates the native window, then applies capture exclusion,
// click-through and topmost enforcement. Only window creation failure is
// fatal; protection failures degrade and are logged.
func (w *Window) Show() error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.shown {
		return nil
	}
	if w.platform.NewSurface == nil {
		return fmt.Errorf("%w: %w", ErrWindowCreate, ErrUnsupported)
	}
	bounds := w.opts.Bounds
	if bounds.Empty() && w.platform.Screen != nil {
		bounds = w.platform.Screen()
	}
	if bounds.Empty() {
		return fmt.Errorf("%w: empty screen bounds", ErrWindowCreate)
	}

	w.prot.Store(uint32(Unprotected))
	surface := w.platform.NewSurface()
	ready := make(chan createResult, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	go w.renderLoop(surface, bounds, ready, stop, done)

	var res createResult
	select {
	case res = <-ready:
	case <-time.After(w.opts.CreateTimeout):
		close(stop)
		return fmt.Errorf("%w: timed out after %s", ErrWindowCreate, w.opts.CreateTimeout)
	}
	if res.err != nil {
		close(stop)
		return fmt.Errorf("%w: %w", ErrWindowCreate, res.err)
	}

	w.handle = res.h
	w.stopRender = stop
	w.renderDone = done
	w.shown = true
	w.open.Store(true)
	w.protect(res.h)
	if w.logger != nil {
		w.logger.Info("overlay shown", "bounds", bounds, "fps", w.opts.FPS, "protection", w.Protection().String())
	}
	return nil
}

func (w *Window) protect(h Handle) {
	if p := w.platform.Protector; p != nil {
		if w.excludeFromCapture(p, h) {
			w.setFlag(CaptureExcluded, true)
		}
		if w.enableClickThrough(p, h) {
			w.setFlag(ClickThroughEnabled, true)
		}
	} else if w.logger != nil {
		w.logger.Warn("overlay protection unavailable")
	}

	var watchers []ActivationWatcher
	if w.platform.Watchers != nil {
		watchers = w.platform.Watchers()
	}
	w.guard = NewGuard(w.platform.ZOrder, watchers, w.opts.GuardInterval, w.logger)
	if err := w.guard.Start(h); err != nil {
		if w.logger != nil {
			w.logger.Warn("topmost enforcement unavailable", "error", err)
		}
		return
	}
	w.setFlag(TopmostEnforced, true)
}

func (w *Window) excludeFromCapture(p Protector, h Handle) bool {
	if err := p.ExcludeFromCapture(h); err != nil {
		if w.logger != nil {
			w.logger.Warn("capture exclusion failed; overlay may appear in captures", "error", err)
		}
		return false
	}
	ok, err := p.CaptureExcluded(h)
	if err != nil || !ok {
		if w.logger != nil {
			w.logger.Warn("capture exclusion not confirmed", "error", err)
		}
		return false
	}
	return true
}

// enableClickThrough sets input transparency and verifies it by reading the
// style back, retrying once with a clear-then-set cycle.
func (w *Window) enableClickThrough(p Protector, h Handle) bool {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			_ = p.SetClickThrough(h, false)
		}
		if err := p.SetClickThrough(h, true); err != nil {
			if w.logger != nil {
				w.logger.Warn("click-through set failed", "attempt", attempt+1, "error", err)
			}
			continue
		}
		if ok, err := p.ClickThrough(h); err == nil && ok {
			return true
		}
	}
	if w.logger != nil {
		w.logger.Warn("click-through not confirmed; overlay may intercept input")
	}
	return false
}

// Hide releases protection in reverse order and destroys the window. Safe to
// call repeatedly.
func (w *Window) Hide() error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if !w.shown {
		return nil
	}
	w.shown = false
	w.open.Store(false)

	var err error
	if w.guard != nil {
		err = w.guard.Stop(w.opts.StopTimeout)
		w.setFlag(TopmostEnforced, false)
	}
	close(w.stopRender)
	select {
	case <-w.renderDone:
	case <-time.After(w.opts.StopTimeout):
		if w.logger != nil {
			w.logger.Warn("overlay render stop timed out", "timeout", w.opts.StopTimeout)
		}
	}
	// Destroying the window drops click-through and capture exclusion with it.
	w.prot.Store(uint32(Unprotected))
	w.handle = 0

	w.frameMu.Lock()
	w.latest = nil
	w.frameMu.Unlock()
	if w.logger != nil {
		w.logger.Info("overlay hidden", "presented", w.presented.Load())
	}
	return err
}

// Update replaces the frame shown on the next render tick. It may be called
// from any goroutine; the frame is copied before the slot lock is taken.
func (w *Window) Update(f capture.Frame) {
	if f.Empty() {
		return
	}
	img := capture.CloneRGBA(f.Image)
	w.frameMu.Lock()
	w.latest = img
	w.frameMu.Unlock()
}

// IsOpen is false once the user asked to close the overlay or after Hide.
func (w *Window) IsOpen() bool { return w.open.Load() }

// Protection returns the flags currently held.
func (w *Window) Protection() Protection { return Protection(w.prot.Load()) }

// Handle returns the native handle while shown.
func (w *Window) Handle() Handle {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.handle
}

// Stats returns render and guard counters.
func (w *Window) Stats() Stats {
	st := Stats{
		FPS:        math.Float64frombits(w.fpsBits.Load()),
		Presented:  w.presented.Load(),
		Protection: w.Protection(),
	}
	w.stateMu.Lock()
	if w.guard != nil {
		st.Guard = w.guard.Stats()
	}
	w.stateMu.Unlock()
	return st
}

func (w *Window) setFlag(f Protection, on bool) {
	for {
		old := w.prot.Load()
		next := old | uint32(f)
		if !on {
			next = old &^ uint32(f)
		}
		if w.prot.CompareAndSwap(old, next) {
			return
		}
	}
}

func (w *Window) current() *image.RGBA {
	w.frameMu.Lock()
	defer w.frameMu.Unlock()
	return w.latest
}

// renderLoop owns the native surface. Native windows deliver messages to the
// thread that created them, so the goroutine stays on one OS thread.
func (w *Window) renderLoop(s Surface, bounds image.Rectangle, ready chan<- createResult, stop <-chan struct{}, done chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	h, err := s.Create(bounds)
	ready <- createResult{h: h, err: err}
	if err != nil {
		return
	}
	defer func() {
		if err := s.Destroy(); err != nil && w.logger != nil {
			w.logger.Warn("overlay destroy", "error", err)
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(w.opts.FPS))
	defer ticker.Stop()
	var (
		windowStart = time.Now()
		windowCount int
	)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if s.Pump() && w.open.Swap(false) && w.logger != nil {
			w.logger.Info("overlay close requested")
		}
		if err := s.Present(w.current()); err != nil {
			w.errLog.Do(func() {
				if w.logger != nil {
					w.logger.Warn("overlay present", "error", err)
				}
			})
			continue
		}
		w.presented.Add(1)
		windowCount++
		if el := time.Since(windowStart); el >= time.Second {
			fps := float64(windowCount) / el.Seconds()
			w.fpsBits.Store(math.Float64bits(fps))
			windowStart, windowCount = time.Now(), 0
		}
	}
}
