package overlay

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const defaultGuardInterval = 50 * time.Millisecond

// GuardStats counts topmost corrections.
type GuardStats struct {
	WatchdogReasserts uint64
	HookReasserts     uint64
	Hook              string // active watcher name, empty when watchdog-only
}

// Guard keeps a window at the top of the z-order with two independent
// mechanisms: a polling watchdog and an activation watcher. Either alone is
// enough to restore the order; hook delivery can lag under load and polling
// has up to one interval of latency.
type Guard struct {
	zorder   ZOrder
	watchers []ActivationWatcher
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	target  Handle
	active  ActivationWatcher
	stop    chan struct{}
	done    chan struct{}
	running bool

	armed    atomic.Bool    // read by onActivate without locking
	armedFor atomic.Uintptr // target handle while armed
	watchdog atomic.Uint64
	hook     atomic.Uint64
	errLog   rate.Sometimes
	diagLog  rate.Sometimes
}

// NewGuard constructs a guard. watchers are tried in order on Start; the first
// that installs wins.
func NewGuard(z ZOrder, watchers []ActivationWatcher, interval time.Duration, logger *slog.Logger) *Guard {
	if interval <= 0 {
		interval = defaultGuardInterval
	}
	return &Guard{
		zorder:   z,
		watchers: watchers,
		interval: interval,
		logger:   logger,
		errLog:   rate.Sometimes{Interval: 2 * time.Second},
		diagLog:  rate.Sometimes{Interval: 5 * time.Second},
	}
}

// Start raises target once, installs an activation watcher if one is
// available and launches the watchdog. Running without a watcher is degraded
// but functional.
func (g *Guard) Start(target Handle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil
	}
	if g.zorder == nil {
		return ErrUnsupported
	}
	g.target = target
	g.armedFor.Store(uintptr(target))
	g.armed.Store(true)
	if err := g.zorder.Raise(target, false); err != nil {
		g.logErr("initial raise", err)
	}

	for _, w := range g.watchers {
		if w == nil {
			continue
		}
		if err := w.Start(target, g.onActivate); err != nil {
			if g.logger != nil {
				g.logger.Warn("activation watcher unavailable", "watcher", w.Name(), "error", err)
			}
			continue
		}
		g.active = w
		break
	}
	if g.active == nil && g.logger != nil {
		g.logger.Warn("topmost guard running watchdog-only")
	}

	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	g.running = true
	go g.loop(target, g.stop, g.done)
	if g.logger != nil {
		g.logger.Info("topmost guard started", "interval", g.interval, "hook", g.hookName())
	}
	return nil
}

// Stop unregisters the watcher first, then stops the watchdog with a bounded
// join. It is safe to call more than once.
func (g *Guard) Stop(timeout time.Duration) error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false
	g.armed.Store(false)
	active := g.active
	g.active = nil
	close(g.stop)
	done := g.done
	g.mu.Unlock()

	var errs []error
	if active != nil {
		if err := active.Stop(timeout); err != nil {
			errs = append(errs, err)
		}
	}
	select {
	case <-done:
	case <-time.After(timeout):
		if g.logger != nil {
			g.logger.Warn("topmost watchdog stop timed out", "timeout", timeout)
		}
		errs = append(errs, errors.New("overlay: watchdog join timed out"))
	}
	return errors.Join(errs...)
}

// Running reports whether the watchdog is active.
func (g *Guard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Stats returns correction counters.
func (g *Guard) Stats() GuardStats {
	g.mu.Lock()
	name := g.hookName()
	g.mu.Unlock()
	return GuardStats{WatchdogReasserts: g.watchdog.Load(), HookReasserts: g.hook.Load(), Hook: name}
}

func (g *Guard) hookName() string {
	if g.active == nil {
		return ""
	}
	return g.active.Name()
}

// onActivate runs on the OS dispatch thread: count and request an async raise.
func (g *Guard) onActivate(activated Handle) {
	target := Handle(g.armedFor.Load())
	if !g.armed.Load() || activated == target {
		return
	}
	g.hook.Add(1)
	if err := g.zorder.Raise(target, true); err != nil {
		g.logErr("hook raise", err)
	}
}

func (g *Guard) loop(target Handle, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fg := g.zorder.Foreground()
			if fg == target {
				continue
			}
			g.watchdog.Add(1)
			g.diag(fg)
			if err := g.zorder.Raise(target, false); err != nil {
				g.logErr("watchdog raise", err)
			}
		}
	}
}

func (g *Guard) logErr(msg string, err error) {
	g.errLog.Do(func() {
		if g.logger != nil {
			g.logger.Warn(msg, "error", err)
		}
	})
}

type titler interface{ Title(Handle) string }

func (g *Guard) diag(fg Handle) {
	g.diagLog.Do(func() {
		if g.logger == nil {
			return
		}
		title := ""
		if t, ok := g.zorder.(titler); ok {
			title = t.Title(fg)
		}
		g.logger.Debug("topmost reasserted", "foreground", title, "watchdog", g.watchdog.Load(), "hook", g.hook.Load())
	})
}
