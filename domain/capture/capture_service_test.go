package capture

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeGrabber struct {
	calls atomic.Int64
	fail  atomic.Bool
	w, h  int
}

func (g *fakeGrabber) Name() string { return "fake" }

func (g *fakeGrabber) Grab() (*image.RGBA, error) {
	g.calls.Add(1)
	if g.fail.Load() {
		return nil, errors.New("grab failed")
	}
	return filled(g.w, g.h), nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestService_ProducesMaskedFrames(t *testing.T) {
	g := &fakeGrabber{w: 40, h: 20}
	q := NewFrameQueue(2)
	ex := NewExclusionList([]image.Rectangle{image.Rect(0, 0, 5, 5)})
	s := NewCaptureService(g, q, ex, discardLogger(), Options{})
	s.Start()
	defer s.Stop(time.Second)

	f, err := s.Frame(time.Second)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if f.Image.Bounds() != image.Rect(0, 0, 40, 20) {
		t.Fatalf("unexpected bounds %v", f.Image.Bounds())
	}
	if !isZero(f.Image.RGBAAt(2, 2)) || isZero(f.Image.RGBAAt(10, 10)) {
		t.Fatalf("exclusion mask not applied")
	}
	if f.Sequence == 0 {
		t.Fatalf("sequence not assigned")
	}
}

func TestService_Downscale(t *testing.T) {
	g := &fakeGrabber{w: 100, h: 50}
	s := NewCaptureService(g, NewFrameQueue(1), nil, discardLogger(), Options{Scale: 0.5})
	f, err := s.Frame(0)
	if err != nil {
		t.Fatalf("direct grab: %v", err)
	}
	if f.Image.Bounds().Dx() != 50 || f.Image.Bounds().Dy() != 25 {
		t.Fatalf("expected 50x25, got %v", f.Image.Bounds())
	}
	if s.Stats().DirectGrabs != 1 {
		t.Fatalf("expected one direct grab")
	}
}

func TestService_FrameReusesLastOnTimeout(t *testing.T) {
	g := &fakeGrabber{w: 8, h: 8}
	q := NewFrameQueue(1)
	s := NewCaptureService(g, q, nil, discardLogger(), Options{})
	q.Push(Frame{Image: filled(8, 8), Sequence: 42})
	f, err := s.Frame(10 * time.Millisecond)
	if err != nil || f.Sequence != 42 {
		t.Fatalf("expected seq 42, got %d err=%v", f.Sequence, err)
	}
	f, err = s.Frame(10 * time.Millisecond)
	if err != nil || f.Sequence != 42 {
		t.Fatalf("expected reuse of seq 42, got %d err=%v", f.Sequence, err)
	}
	if g.calls.Load() != 0 {
		t.Fatalf("no grab expected while a previous frame exists")
	}
	if s.Stats().Reused != 1 {
		t.Fatalf("expected reused=1, got %d", s.Stats().Reused)
	}
}

func TestService_ErrorsNeverStopLoop(t *testing.T) {
	g := &fakeGrabber{w: 4, h: 4}
	g.fail.Store(true)
	q := NewFrameQueue(1)
	s := NewCaptureService(g, q, nil, discardLogger(), Options{})
	s.Start()
	time.Sleep(250 * time.Millisecond)
	st := s.Stats()
	if st.Failures < maxConsecutiveErrors || st.Backoffs == 0 {
		t.Fatalf("expected failures and a backoff, got failures=%d backoffs=%d", st.Failures, st.Backoffs)
	}
	if !s.Running() {
		t.Fatalf("loop should keep running after errors")
	}
	g.fail.Store(false)
	if _, err := q.Pop(time.Second); err != nil {
		t.Fatalf("expected recovery after errors: %v", err)
	}
	if !s.Stop(time.Second) {
		t.Fatalf("stop did not join")
	}
	if !s.Stop(time.Second) {
		t.Fatalf("second stop should be a no-op")
	}
}
