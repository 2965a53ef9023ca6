package capture

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/time/rate"
)

const (
	defaultMinInterval   = 10 * time.Millisecond
	defaultStatsInterval = 5 * time.Second
	maxConsecutiveErrors = 5
	errorBackoff         = 100 * time.Millisecond
)

// Options tunes the capture loop. Zero values select defaults.
type Options struct {
	MinInterval   time.Duration // minimum time between grabs
	Scale         float64       // downscale factor in (0,1]; 1 keeps native size
	StatsInterval time.Duration
}

// Service runs one capture goroutine that grabs the desktop, downscales,
// masks exclusion regions and pushes frames into a FrameQueue. Errors are
// counted and backed off, never fatal. Use NewCaptureService to construct.
type Service struct {
	grabber    Grabber
	queue      *FrameQueue
	exclusions *ExclusionList
	logger     *slog.Logger
	opts       Options

	mu      sync.Mutex // guards stopCh/done across Start/Stop
	stopCh  chan struct{}
	done    chan struct{}
	running atomic.Bool

	last         atomic.Pointer[Frame]
	captures     atomic.Uint64
	failures     atomic.Uint64
	backoffs     atomic.Uint64
	reused       atomic.Uint64
	direct       atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
	lastCapture  atomic.Int64

	errLog rate.Sometimes
}

// NewCaptureService constructs a capture service feeding queue. exclusions may
// be nil.
func NewCaptureService(grabber Grabber, queue *FrameQueue, exclusions *ExclusionList, logger *slog.Logger, opts Options) *Service {
	if opts.MinInterval < defaultMinInterval {
		opts.MinInterval = defaultMinInterval
	}
	if opts.Scale <= 0 || opts.Scale > 1 {
		opts.Scale = 1
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = defaultStatsInterval
	}
	if exclusions == nil {
		exclusions = NewExclusionList(nil)
	}
	return &Service{
		grabber:    grabber,
		queue:      queue,
		exclusions: exclusions,
		logger:     logger,
		opts:       opts,
		errLog:     rate.Sometimes{Interval: 2 * time.Second},
	}
}

// Start launches the capture goroutine. Calling Start while running is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.running.Store(true)
	go s.loop(s.stopCh, s.done)
}

// Stop signals the loop and waits up to timeout for it to exit. It reports
// whether the goroutine finished in time; a missed join is logged and the
// goroutine is abandoned.
func (s *Service) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return true
	}
	s.running.Store(false)
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		if s.logger != nil {
			s.logger.Warn("capture stop timed out", "timeout", timeout)
		}
		return false
	}
}

func (s *Service) Running() bool { return s.running.Load() }

// Frame returns the next queued frame. When none arrives within timeout the
// previously returned frame is reused; if there is none yet a synchronous grab
// is attempted. Returned frames are shared with later Frame calls and must not
// be modified.
func (s *Service) Frame(timeout time.Duration) (Frame, error) {
	f, err := s.queue.Pop(timeout)
	if err == nil {
		s.last.Store(&f)
		return f, nil
	}
	if prev := s.last.Load(); prev != nil {
		s.reused.Add(1)
		return *prev, nil
	}
	f, err = s.grabFrame()
	if err != nil {
		return Frame{}, err
	}
	s.direct.Add(1)
	s.last.Store(&f)
	return f, nil
}

// Stats returns a snapshot of the capture counters.
func (s *Service) Stats() Stats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	var last time.Time
	age := time.Duration(0)
	if ns := s.lastCapture.Load(); ns > 0 {
		last = time.Unix(0, ns)
		age = time.Since(last)
	}
	return Stats{
		Captures:         captures,
		Failures:         s.failures.Load(),
		Backoffs:         s.backoffs.Load(),
		Dropped:          s.queue.Drops(),
		Reused:           s.reused.Load(),
		DirectGrabs:      s.direct.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      last,
		LatestFrameAge:   age,
		Sequence:         s.sequence.Load(),
	}
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	logTicker := time.NewTicker(s.opts.StatsInterval)
	defer logTicker.Stop()

	consecutive := 0
	var lastGrab time.Time
	for {
		select {
		case <-stop:
			return
		default:
		}
		if wait := s.opts.MinInterval - time.Since(lastGrab); wait > 0 {
			if !sleep(stop, wait) {
				return
			}
		}
		lastGrab = time.Now()

		f, err := s.grabFrame()
		if err != nil {
			s.failures.Add(1)
			consecutive++
			s.errLog.Do(func() {
				if s.logger != nil {
					s.logger.Error("capture grab", "error", err, "consecutive", consecutive)
				}
			})
			if consecutive >= maxConsecutiveErrors {
				s.backoffs.Add(1)
				consecutive = 0
				if !sleep(stop, errorBackoff) {
					return
				}
			}
			continue
		}
		consecutive = 0
		s.queue.Push(f)

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}
	}
}

// grabFrame performs one grab, downscale and mask pass.
func (s *Service) grabFrame() (Frame, error) {
	start := time.Now()
	img, err := s.grabber.Grab()
	if err != nil {
		return Frame{}, err
	}
	if s.opts.Scale != 1 {
		img = downscale(img, s.opts.Scale)
	}
	MaskRegions(img, s.exclusions.Snapshot())

	now := time.Now()
	s.captureNanos.Add(uint64(now.Sub(start).Nanoseconds()))
	s.captures.Add(1)
	s.lastCapture.Store(now.UnixNano())
	return Frame{Image: img, CapturedAt: now, Sequence: s.sequence.Add(1)}, nil
}

// downscale resizes src by factor using nearest-neighbour sampling.
func downscale(src *image.RGBA, factor float64) *image.RGBA {
	b := src.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// sleep waits for d or until stop closes; it reports false on stop.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}

func (s *Service) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"failures", stats.Failures,
		"dropped", stats.Dropped,
		"avg_capture", stats.AvgCapture,
		"seq", stats.Sequence,
	)
}
