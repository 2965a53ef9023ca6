package overlay

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

const overlayHandle Handle = 42

func TestGuard_WatchdogRestoresTopmost(t *testing.T) {
	d := newFakeDesktop()
	g := NewGuard(d, nil, 10*time.Millisecond, discardLogger())
	if err := g.Start(overlayHandle); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer g.Stop(time.Second)
	if d.topmost() != overlayHandle {
		t.Fatalf("start should raise the overlay immediately")
	}
	d.activate(7)
	if !waitFor(200*time.Millisecond, func() bool { return d.topmost() == overlayHandle }) {
		t.Fatalf("watchdog did not restore z-order")
	}
	if g.Stats().WatchdogReasserts == 0 || g.Stats().Hook != "" {
		t.Fatalf("unexpected stats %+v", g.Stats())
	}
}

func TestGuard_HookReassertsInlineAsync(t *testing.T) {
	d := newFakeDesktop()
	hook := &fakeWatcher{name: "primary"}
	g := NewGuard(d, []ActivationWatcher{hook}, time.Hour, discardLogger())
	if err := g.Start(overlayHandle); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer g.Stop(time.Second)

	d.activate(9)
	hook.activated(9)
	if d.topmost() != overlayHandle {
		t.Fatalf("hook did not restore z-order")
	}
	if d.asyncRaises != 1 {
		t.Fatalf("hook raise must be async, got %d", d.asyncRaises)
	}
	hook.activated(overlayHandle)
	if g.Stats().HookReasserts != 1 {
		t.Fatalf("activation of the overlay itself must not reassert")
	}
}

func TestGuard_FallsBackThroughWatchers(t *testing.T) {
	d := newFakeDesktop()
	first := &fakeWatcher{name: "primary", startErr: ErrHookUnavailable}
	second := &fakeWatcher{name: "winevent"}
	g := NewGuard(d, []ActivationWatcher{first, second}, 10*time.Millisecond, discardLogger())
	if err := g.Start(overlayHandle); err != nil {
		t.Fatalf("start: %v", err)
	}
	if g.Stats().Hook != "winevent" {
		t.Fatalf("expected fallback watcher, got %q", g.Stats().Hook)
	}
	if err := g.Stop(time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if second.stopped != 1 || first.stopped != 0 {
		t.Fatalf("only the installed watcher should be stopped: first=%d second=%d", first.stopped, second.stopped)
	}
	if err := g.Stop(time.Second); err != nil || second.stopped != 1 {
		t.Fatalf("second stop should be a no-op")
	}
}

func TestGuard_WatchdogOnlyWhenNoHook(t *testing.T) {
	d := newFakeDesktop()
	failing := &fakeWatcher{name: "primary", startErr: errors.New("denied")}
	g := NewGuard(d, []ActivationWatcher{failing}, 10*time.Millisecond, discardLogger())
	if err := g.Start(overlayHandle); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer g.Stop(time.Second)
	d.activate(3)
	if !waitFor(200*time.Millisecond, func() bool { return d.topmost() == overlayHandle }) {
		t.Fatalf("watchdog-only mode did not restore z-order")
	}
}

func TestGuard_NoZOrder(t *testing.T) {
	g := NewGuard(nil, nil, 0, nil)
	if err := g.Start(overlayHandle); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

// For any sequence of foreign activations the overlay is back on top within
// one hook delivery, or within one watchdog cycle when hooks are missed.
func TestGuard_TopmostInvariantUnderActivationSequences(t *testing.T) {
	const interval = 10 * time.Millisecond
	rng := rand.New(rand.NewSource(5))
	d := newFakeDesktop()
	hook := &fakeWatcher{name: "primary"}
	g := NewGuard(d, []ActivationWatcher{hook}, interval, discardLogger())
	if err := g.Start(overlayHandle); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer g.Stop(time.Second)

	for i := 0; i < 50; i++ {
		other := Handle(100 + rng.Intn(20))
		d.activate(other)
		if rng.Intn(3) > 0 {
			hook.activated(other)
			if d.topmost() != overlayHandle {
				t.Fatalf("event %d: hook delivery left window %d on top", i, d.topmost())
			}
			continue
		}
		// Hook missed: the watchdog must catch it.
		if !waitFor(5*interval, func() bool { return d.topmost() == overlayHandle }) {
			t.Fatalf("event %d: watchdog did not restore z-order", i)
		}
	}
}
