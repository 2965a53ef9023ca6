package model

import (
	"image"
	"testing"
	"time"

	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/domain/session"
)

func TestExclusionModel_ScreenToFrame(t *testing.T) {
	m := NewExclusionModel([]config.Region{{X: 1, Y: 1, W: 2, H: 2}}, image.Pt(-1920, 0), 0.5)
	reg, ok := m.AddScreenRect(image.Rect(-1920+100, 50, -1920+301, 250))
	if !ok {
		t.Fatalf("expected region to be added")
	}
	want := config.Region{X: 50, Y: 25, W: 101, H: 100}
	if reg != want {
		t.Fatalf("got %+v want %+v", reg, want)
	}
	if len(m.Regions()) != 2 || len(m.Rects()) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(m.Regions()))
	}
	if _, ok := m.AddScreenRect(image.Rectangle{}); ok {
		t.Fatalf("empty rect must be ignored")
	}
	m.Clear()
	if len(m.Rects()) != 0 {
		t.Fatalf("clear left regions behind")
	}
	m.Reset([]config.Region{want})
	if got := m.Rects(); len(got) != 1 || got[0] != image.Rect(50, 25, 151, 125) {
		t.Fatalf("reset: unexpected rects %v", got)
	}
}

func TestParseGeometry(t *testing.T) {
	cases := []struct {
		in   string
		want image.Rectangle
		ok   bool
	}{
		{"200x100+10+20", image.Rect(10, 20, 210, 120), true},
		{"200x100+-1910+5", image.Rect(-1910, 5, -1710, 105), true},
		{" 50x50-30+0 ", image.Rect(-30, 0, 20, 50), true},
		{"0x100+1+1", image.Rectangle{}, false},
		{"garbage", image.Rectangle{}, false},
	}
	for _, c := range cases {
		got, ok := ParseGeometry(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("%q: got %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseTargets(t *testing.T) {
	targets, unknown := ParseTargets("face, hand;face  robot", []string{"face", "hand", "eyes"})
	if len(targets) != 2 || targets[0] != "face" || targets[1] != "hand" {
		t.Fatalf("unexpected targets %v", targets)
	}
	if len(unknown) != 1 || unknown[0] != "robot" {
		t.Fatalf("unexpected unknown %v", unknown)
	}
	if FormatTargets(targets) != "face, hand" {
		t.Fatalf("format mismatch: %q", FormatTargets(targets))
	}
	all, _ := ParseTargets("x y", nil)
	if len(all) != 2 {
		t.Fatalf("empty known list should accept all: %v", all)
	}
}

func TestCountersModel_Rate(t *testing.T) {
	var m CountersModel
	base := time.Unix(100, 0)
	m.Update(session.Stats{SessionID: "a", Frames: 10}, base)
	m.Update(session.Stats{SessionID: "a", Frames: 40}, base.Add(500*time.Millisecond))
	if m.ProcessRate() != 0 {
		t.Fatalf("rate must wait for a full window")
	}
	m.Update(session.Stats{SessionID: "a", Frames: 70}, base.Add(2*time.Second))
	if m.ProcessRate() != 30 {
		t.Fatalf("expected 30 fps, got %v", m.ProcessRate())
	}
	m.Update(session.Stats{SessionID: "b", Frames: 1}, base.Add(3*time.Second))
	if m.ProcessRate() != 0 || m.Latest().SessionID != "b" {
		t.Fatalf("new session should reset the rate")
	}
}
