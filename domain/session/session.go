package session

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/soocke/screen-mosaic-go/domain/capture"
	"github.com/soocke/screen-mosaic-go/domain/detection"
	"github.com/soocke/screen-mosaic-go/domain/mosaic"
	"github.com/soocke/screen-mosaic-go/domain/overlay"
)

const (
	framePopTimeout = 100 * time.Millisecond
	mosaicLogEvery  = 30
)

// State is the lifecycle position of a Session.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateActive
	StateStopping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Display is the overlay surface a session renders into.
type Display interface {
	Show() error
	Hide() error
	Update(capture.Frame)
	IsOpen() bool
	Stats() overlay.Stats
}

// SnapshotSink persists debug stills of raw and processed frames.
type SnapshotSink interface {
	Save(kind string, seq uint64, img *image.RGBA) error
}

// Params are the user-facing knobs of one run.
type Params struct {
	Targets    []string
	Strength   int
	Confidence float64
	FPS        int
}

// Stats is a point-in-time view of a session.
type Stats struct {
	SessionID         string
	State             State
	Frames            uint64
	Objects           uint64
	Mosaics           uint64
	CaptureDrops      uint64
	CaptureFailures   uint64
	DetectErrors      uint64
	RenderFPS         float64
	WatchdogReasserts uint64
	HookReasserts     uint64
	Protection        overlay.Protection
	StartedAt         time.Time
	Runtime           time.Duration
}

// Session owns every resource of one overlay run: queue, capture service,
// detection engine, display and the processing goroutine. It is never reused.
type Session struct {
	ID        string
	Params    Params
	StartedAt time.Time

	state    atomic.Int32
	queue    *capture.FrameQueue
	capture  *capture.Service
	engine   *detection.Guarded
	display  Display
	targets  mosaic.TargetSet
	snaps    SnapshotSink
	snapEach uint64
	interval time.Duration
	logger   *slog.Logger

	stop chan struct{}
	done chan struct{}

	frames  atomic.Uint64
	objects atomic.Uint64
	mosaics atomic.Uint64
	endedAt atomic.Int64
	latest  atomic.Pointer[capture.Frame]

	errLog rate.Sometimes
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if s.logger != nil && prev != st {
		s.logger.Debug("session state", "from", prev.String(), "to", st.String())
	}
}

// Stats gathers counters from the session and its components.
func (s *Session) Stats() Stats {
	st := Stats{
		SessionID: s.ID,
		State:     s.State(),
		Frames:    s.frames.Load(),
		Objects:   s.objects.Load(),
		Mosaics:   s.mosaics.Load(),
		StartedAt: s.StartedAt,
	}
	if s.capture != nil {
		cs := s.capture.Stats()
		st.CaptureDrops = cs.Dropped
		st.CaptureFailures = cs.Failures
	}
	if s.engine != nil {
		st.DetectErrors = s.engine.Errors()
	}
	if s.display != nil {
		ds := s.display.Stats()
		st.RenderFPS = ds.FPS
		st.Protection = ds.Protection
		st.WatchdogReasserts = ds.Guard.WatchdogReasserts
		st.HookReasserts = ds.Guard.HookReasserts
	}
	if !s.StartedAt.IsZero() {
		end := time.Now()
		if ns := s.endedAt.Load(); ns > 0 {
			end = time.Unix(0, ns)
		}
		st.Runtime = end.Sub(s.StartedAt)
	}
	return st
}

// LatestFrame returns the most recent processed frame. The image must not be
// modified.
func (s *Session) LatestFrame() (capture.Frame, bool) {
	if f := s.latest.Load(); f != nil {
		return *f, true
	}
	return capture.Frame{}, false
}

// run is the processing loop. It reports through ended when the display is
// closed by the user; explicit stops arrive through s.stop.
func (s *Session) run(ended func(*Session)) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		start := time.Now()
		if !s.iterate() {
			if s.logger != nil {
				s.logger.Info("overlay closed by user")
			}
			ended(s)
			return
		}
		if wait := s.interval - time.Since(start); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-s.stop:
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

// iterate processes one frame. It returns false once the display has closed.
// A panic inside one iteration is logged and the loop continues.
func (s *Session) iterate() (open bool) {
	defer func() {
		if r := recover(); r != nil {
			open = s.display.IsOpen()
			s.logErr("processing iteration panic", fmt.Errorf("%v", r))
		}
	}()
	if !s.display.IsOpen() {
		return false
	}
	f, err := s.capture.Frame(framePopTimeout)
	if err != nil {
		s.logErr("frame unavailable", err)
		return true
	}
	dets, _ := s.engine.Detect(f.Image, s.Params.Confidence)
	res := mosaic.Apply(f, dets, s.targets, s.Params.Strength)
	s.display.Update(res.Frame)
	s.latest.Store(&res.Frame)

	n := s.frames.Add(1)
	s.objects.Add(uint64(len(dets)))
	total := s.mosaics.Add(uint64(res.Applied))
	if res.Applied > 0 && n%mosaicLogEvery == 0 && s.logger != nil {
		s.logger.Info("mosaic applied", "frame", n, "regions", res.Applied, "total", total)
	}
	if s.snaps != nil && s.snapEach > 0 && n%s.snapEach == 0 {
		s.saveSnapshots(f, res.Frame)
	}
	return s.display.IsOpen()
}

func (s *Session) saveSnapshots(raw, processed capture.Frame) {
	if err := s.snaps.Save("raw", raw.Sequence, raw.Image); err != nil {
		s.logErr("snapshot raw", err)
	}
	if err := s.snaps.Save("processed", processed.Sequence, processed.Image); err != nil {
		s.logErr("snapshot processed", err)
	}
}

func (s *Session) logErr(msg string, err error) {
	s.errLog.Do(func() {
		if s.logger != nil {
			s.logger.Warn(msg, "error", err)
		}
	})
}
