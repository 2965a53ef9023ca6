package detection

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Guarded wraps an Engine so failures never reach the caller: errors and
// panics yield an empty result and a rate-limited log line.
type Guarded struct {
	inner  Engine
	logger *slog.Logger
	errLog rate.Sometimes
	errors atomic.Uint64
	calls  atomic.Uint64
	nanos  atomic.Uint64
}

// NewGuarded wraps e. A nil engine behaves like Nop.
func NewGuarded(e Engine, logger *slog.Logger) *Guarded {
	if e == nil {
		e = Nop{}
	}
	return &Guarded{inner: e, logger: logger, errLog: rate.Sometimes{Interval: 2 * time.Second}}
}

// Detect runs the wrapped engine and filters out invalid boxes.
func (g *Guarded) Detect(img *image.RGBA, confidence float64) (out []Detection, _ error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = nil
			g.fail(fmt.Errorf("detection panic: %v", r))
		}
		g.calls.Add(1)
		g.nanos.Add(uint64(time.Since(start).Nanoseconds()))
	}()
	if img == nil {
		return nil, nil
	}
	dets, err := g.inner.Detect(img, confidence)
	if err != nil {
		g.fail(err)
		return nil, nil
	}
	return filterValid(dets, confidence), nil
}

// Errors returns how many calls failed or panicked.
func (g *Guarded) Errors() uint64 { return g.errors.Load() }

// AvgLatency is the mean Detect duration.
func (g *Guarded) AvgLatency() time.Duration {
	n := g.calls.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(g.nanos.Load() / n)
}

func (g *Guarded) fail(err error) {
	g.errors.Add(1)
	g.errLog.Do(func() {
		if g.logger != nil {
			g.logger.Warn("detection failed", "error", err, "failures", g.errors.Load())
		}
	})
}
