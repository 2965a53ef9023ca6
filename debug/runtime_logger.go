package debug

// Periodic runtime logging for debug runs. Each overlay session starts its
// own capture, processing, render, watchdog and hook goroutines, so a count
// that keeps rising across sessions points at a leak. RSS sits next to the Go
// heap so native growth from GDI bitmaps and window buffers shows up too.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/dustin/go-humanize"
)

const goroutineMetric = "/sched/goroutines:goroutines"

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}

// StartGoroutineLogger logs the goroutine count and stack usage.
func StartGoroutineLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	sample := []metrics.Sample{{Name: goroutineMetric}}
	every(ctx, interval, func() {
		metrics.Read(sample)
		n := uint64(runtime.NumGoroutine())
		if sample[0].Value.Kind() == metrics.KindUint64 {
			n = sample[0].Value.Uint64()
		}
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		logger.Debug("goroutines",
			"count", n,
			"stack_inuse", humanize.IBytes(ms.StackInuse),
			"stack_sys", humanize.IBytes(ms.StackSys),
		)
	})
}

// StartMemLogger logs heap statistics and resident set size. An RSS query
// failure is reported once.
func StartMemLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	warned := false
	every(ctx, interval, func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		rss, err := processRSS()
		if err != nil && !warned {
			logger.Warn("rss unavailable", "error", err)
			warned = true
		}
		logger.Debug("memory",
			"rss", humanize.IBytes(rss),
			"heap_alloc", humanize.IBytes(ms.HeapAlloc),
			"heap_inuse", humanize.IBytes(ms.HeapInuse),
			"heap_idle", humanize.IBytes(ms.HeapIdle),
			"heap_sys", humanize.IBytes(ms.HeapSys),
			"next_gc", humanize.IBytes(ms.NextGC),
			"gc_cycles", ms.NumGC,
		)
	})
}
