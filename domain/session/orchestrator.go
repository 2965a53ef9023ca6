package session

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/domain/capture"
	"github.com/soocke/screen-mosaic-go/domain/detection"
	"github.com/soocke/screen-mosaic-go/domain/mosaic"
)

var (
	ErrAlreadyRunning = errors.New("session: already running")
	ErrNoTargets      = errors.New("session: no targets selected")
	ErrClosed         = errors.New("session: orchestrator closed")
)

// Factory builds the per-session collaborators. NewGrabber and NewDisplay are
// required; a nil NewEngine runs with detection.Nop.
type Factory struct {
	NewGrabber func(cfg *config.Config) (capture.Grabber, error)
	NewEngine  func(cfg *config.Config) (detection.Engine, error)
	NewDisplay func(cfg *config.Config, fps int) Display
	Exclusions *capture.ExclusionList
	Snapshots  SnapshotSink
}

// Listener observes session state transitions.
type Listener func(prev, next State)

// Orchestrator starts and stops overlay sessions. All lifecycle changes are
// serialized through one control goroutine; Start and Stop block until it has
// handled the command.
type Orchestrator struct {
	logger  *slog.Logger
	factory Factory
	cfg     atomic.Pointer[config.Config]

	events    chan interface{}
	closeOnce sync.Once
	quit      chan struct{}

	// owned by the control goroutine
	current   *Session
	listeners []Listener

	active atomic.Pointer[Session]
	last   atomic.Pointer[Stats]
}

type (
	evtStart struct {
		params Params
		reply  chan error
	}
	evtStop        struct{ reply chan error }
	evtEnded       struct{ s *Session }
	evtAddListener struct{ l Listener }
)

// NewOrchestrator constructs the orchestrator and starts its control loop.
func NewOrchestrator(cfg *config.Config, factory Factory, logger *slog.Logger) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := &Orchestrator{logger: logger, factory: factory, events: make(chan interface{}, 16), quit: make(chan struct{})}
	o.cfg.Store(cfg.Clone())
	go func() {
		defer func() {
			if r := recover(); r != nil && logger != nil {
				logger.Error("orchestrator panic", "error", r, "stack", string(debug.Stack()))
			}
		}()
		o.loop()
	}()
	return o
}

// SetConfig replaces the configuration used by the next session.
func (o *Orchestrator) SetConfig(cfg *config.Config) {
	if cfg != nil {
		o.cfg.Store(cfg.Clone())
	}
}

// AddListener registers l for state transitions. Listeners run on the control
// goroutine and must not call Start or Stop.
func (o *Orchestrator) AddListener(l Listener) {
	if l != nil {
		o.send(evtAddListener{l: l})
	}
}

// Start launches a new session with p. It fails with ErrAlreadyRunning while
// a session is active and with ErrNoTargets when p selects nothing.
func (o *Orchestrator) Start(p Params) error {
	reply := make(chan error, 1)
	if !o.send(evtStart{params: p, reply: reply}) {
		return ErrClosed
	}
	return <-reply
}

// Stop ends the active session. Stopping when nothing runs is a no-op.
func (o *Orchestrator) Stop() error {
	reply := make(chan error, 1)
	if !o.send(evtStop{reply: reply}) {
		return nil
	}
	return <-reply
}

// Close stops any session and ends the control loop.
func (o *Orchestrator) Close() error {
	err := o.Stop()
	o.closeOnce.Do(func() { close(o.quit) })
	return err
}

// IsRunning reports whether a session is active.
func (o *Orchestrator) IsRunning() bool { return o.active.Load() != nil }

// Stats returns the active session's counters, or the last finished session's.
func (o *Orchestrator) Stats() Stats {
	if s := o.active.Load(); s != nil {
		return s.Stats()
	}
	if st := o.last.Load(); st != nil {
		return *st
	}
	return Stats{}
}

// LatestFrame returns the active session's most recent processed frame.
func (o *Orchestrator) LatestFrame() (capture.Frame, bool) {
	if s := o.active.Load(); s != nil {
		return s.LatestFrame()
	}
	return capture.Frame{}, false
}

func (o *Orchestrator) send(ev interface{}) bool {
	select {
	case <-o.quit:
		return false
	default:
	}
	select {
	case o.events <- ev:
		return true
	case <-o.quit:
		return false
	}
}

func (o *Orchestrator) loop() {
	for {
		select {
		case <-o.quit:
			if o.current != nil {
				o.stopSession(o.current, "shutdown")
			}
			return
		case ev := <-o.events:
			switch e := ev.(type) {
			case evtStart:
				e.reply <- o.handleStart(e.params)
			case evtStop:
				if o.current != nil {
					o.stopSession(o.current, "requested")
				}
				e.reply <- nil
			case evtEnded:
				if o.current == e.s {
					o.stopSession(e.s, "overlay closed")
				}
			case evtAddListener:
				o.listeners = append(o.listeners, e.l)
			}
		}
	}
}

func (o *Orchestrator) transition(s *Session, next State) {
	prev := s.State()
	if prev == next {
		return
	}
	s.setState(next)
	for _, l := range o.listeners {
		l(prev, next)
	}
}

// normalize clamps p to the supported ranges and fills zero values from cfg.
func normalize(p Params, cfg *config.Config) Params {
	p.Targets = config.NormalizeLabels(p.Targets)
	if p.Strength == 0 {
		p.Strength = cfg.MosaicStrength
	}
	p.Strength = mosaic.ClampStrength(p.Strength)
	if p.Confidence == 0 {
		p.Confidence = cfg.Confidence
	}
	p.Confidence = min(max(p.Confidence, config.MinConfidence), config.MaxConfidence)
	if p.FPS == 0 {
		p.FPS = cfg.RenderFPS
	}
	p.FPS = min(max(p.FPS, config.MinRenderFPS), config.MaxRenderFPS)
	return p
}

// processInterval paces the processing loop at the session fps. A positive
// ceiling lowers it further.
func processInterval(fps, ceiling int) time.Duration {
	if ceiling > 0 && ceiling < fps {
		fps = ceiling
	}
	return time.Second / time.Duration(max(fps, 1))
}

func (o *Orchestrator) handleStart(p Params) error {
	if o.current != nil {
		return ErrAlreadyRunning
	}
	cfg := o.cfg.Load()
	p = normalize(p, cfg)
	if len(p.Targets) == 0 {
		return ErrNoTargets
	}
	if o.factory.NewGrabber == nil || o.factory.NewDisplay == nil {
		return errors.New("session: incomplete factory")
	}

	s := &Session{
		ID:       uuid.NewString(),
		Params:   p,
		targets:  mosaic.NewTargetSet(p.Targets),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		interval: processInterval(p.FPS, cfg.ProcessFPS),
		errLog:   rate.Sometimes{Interval: 2 * time.Second},
	}
	if o.logger != nil {
		s.logger = o.logger.With("session", s.ID)
	}
	o.transition(s, StateInitializing)

	fail := func(err error) error {
		if s.logger != nil {
			s.logger.Error("session start failed", "error", err)
		}
		if s.queue != nil {
			s.queue.Close()
		}
		o.transition(s, StateTerminated)
		return err
	}

	grabber, err := o.factory.NewGrabber(cfg)
	if err != nil {
		return fail(fmt.Errorf("session: capture backend: %w", err))
	}
	var engine detection.Engine = detection.Nop{}
	if o.factory.NewEngine != nil {
		e, err := o.factory.NewEngine(cfg)
		if err != nil {
			return fail(fmt.Errorf("session: detection engine: %w", err))
		}
		if e != nil {
			engine = e
		}
	}
	if cfg.ReuseStaticDetections {
		engine = detection.NewStaticFrameFilter(engine, cfg.StaticHashDistance, cfg.StaticReuseMaxAge())
	}
	s.engine = detection.NewGuarded(engine, s.logger)
	s.queue = capture.NewFrameQueue(cfg.QueueCapacity)
	s.capture = capture.NewCaptureService(grabber, s.queue, o.factory.Exclusions, s.logger, capture.Options{
		MinInterval:   cfg.CaptureMinInterval(),
		Scale:         cfg.CaptureScale,
		StatsInterval: cfg.StatsLogInterval(),
	})
	if cfg.Debug && o.factory.Snapshots != nil {
		s.snaps = o.factory.Snapshots
		s.snapEach = uint64(max(cfg.DebugSaveInterval, 1))
	}

	s.display = o.factory.NewDisplay(cfg, p.FPS)
	if err := s.display.Show(); err != nil {
		return fail(err)
	}
	s.capture.Start()
	s.StartedAt = time.Now()
	o.current = s
	o.active.Store(s)
	o.transition(s, StateActive)
	if s.logger != nil {
		s.logger.Info("session started", "targets", p.Targets, "strength", p.Strength,
			"confidence", p.Confidence, "fps", p.FPS, "protection", s.display.Stats().Protection.String())
	}
	go s.run(o.ended)
	return nil
}

// ended is called from the processing goroutine. The send gives up once the
// session is being stopped so a concurrent Stop never waits on it.
func (o *Orchestrator) ended(s *Session) {
	select {
	case o.events <- evtEnded{s: s}:
	case <-s.stop:
	case <-o.quit:
	}
}

func (o *Orchestrator) stopSession(s *Session, reason string) {
	timeout := o.cfg.Load().ShutdownTimeout()
	o.transition(s, StateStopping)
	close(s.stop)
	if err := s.display.Hide(); err != nil && s.logger != nil {
		s.logger.Warn("overlay hide", "error", err)
	}
	s.capture.Stop(timeout)
	s.queue.Close()
	select {
	case <-s.done:
	case <-time.After(timeout):
		if s.logger != nil {
			s.logger.Warn("processing loop join timed out", "timeout", timeout)
		}
	}
	s.endedAt.Store(time.Now().UnixNano())
	st := s.Stats()
	st.State = StateTerminated
	o.last.Store(&st)
	o.current = nil
	o.active.Store(nil)
	o.transition(s, StateTerminated)
	if s.logger != nil {
		s.logger.Info("session stopped", "reason", reason, "frames", st.Frames,
			"objects", st.Objects, "mosaics", st.Mosaics, "runtime", st.Runtime.Round(time.Millisecond))
	}
}
