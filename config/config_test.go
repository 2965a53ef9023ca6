package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestValidateClamps(t *testing.T) {
	c := DefaultConfig()
	c.MosaicStrength = 500
	c.Confidence = 0
	c.RenderFPS = 1000
	c.CaptureScale = 3
	c.CaptureBackend = " GDI "
	c.QueueCapacity = 0
	c.Targets = []string{" face", "face", ""}
	c.ExclusionRegions = []Region{{X: 1, Y: 1, W: 0, H: 5}, {X: 2, Y: 2, W: 3, H: 3}}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.MosaicStrength != MaxStrength || c.Confidence != MinConfidence || c.RenderFPS != MaxRenderFPS {
		t.Fatalf("clamps not applied: %+v", c)
	}
	if c.CaptureScale != 1 || c.CaptureBackend != "gdi" || c.QueueCapacity != 3 {
		t.Fatalf("capture settings not normalized: %+v", c)
	}
	if len(c.Targets) != 1 || c.Targets[0] != "face" {
		t.Fatalf("targets not normalized: %v", c.Targets)
	}
	if len(c.ExclusionRegions) != 1 || c.ExclusionRegions[0].W != 3 {
		t.Fatalf("empty exclusion regions must be dropped: %v", c.ExclusionRegions)
	}
}

func TestValidateProcessFPSCeiling(t *testing.T) {
	c := DefaultConfig()
	if c.ProcessFPS != 0 {
		t.Fatalf("default process fps should mean no ceiling, got %d", c.ProcessFPS)
	}
	for in, want := range map[int]int{-5: 0, 0: 0, 20: 20, 500: MaxRenderFPS} {
		c.ProcessFPS = in
		_ = c.Validate()
		if c.ProcessFPS != want {
			t.Fatalf("ProcessFPS %d -> %d, want %d", in, c.ProcessFPS, want)
		}
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if c.MosaicStrength != 15 || c.QueueCapacity != 3 || len(c.Targets) != 1 {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestLoadBadFileReturnsDefaultsAndError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(p)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if c == nil || c.MosaicStrength != 15 {
		t.Fatalf("expected defaults alongside the error")
	}
}

func TestSaveLoadJSONAndTOML(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.json", "config.toml"} {
		c := DefaultConfig()
		c.MosaicStrength = 22
		c.Targets = []string{"face", "hand"}
		c.ExclusionRegions = []Region{{X: 10, Y: 20, W: 30, H: 40}}
		p := filepath.Join(dir, "nested", name)
		if err := c.Save(p); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		got, err := Load(p)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if got.MosaicStrength != 22 || len(got.Targets) != 2 || len(got.ExclusionRegions) != 1 ||
			got.ExclusionRegions[0] != c.ExclusionRegions[0] {
			t.Fatalf("%s: unexpected config %+v", name, got)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := DefaultConfig()
	c.ExclusionRegions = []Region{{W: 1, H: 1}}
	cp := c.Clone()
	cp.Targets[0] = "changed"
	cp.ExclusionRegions[0].W = 9
	if c.Targets[0] == "changed" || c.ExclusionRegions[0].W == 9 {
		t.Fatalf("clone shares slices with the original")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	if err := DefaultConfig().Save(p); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got *Config
	w := NewWatcher(p, func(c *Config) {
		mu.Lock()
		got = c
		mu.Unlock()
	}, nil)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	c := DefaultConfig()
	c.ExclusionRegions = []Region{{X: 0, Y: 0, W: 50, H: 50}}
	if err := c.Save(p); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := got != nil && len(got.ExclusionRegions) == 1
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if got == nil || len(got.ExclusionRegions) != 1 {
		t.Fatalf("watcher did not deliver the new exclusion regions: %+v", got)
	}
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop on cancel")
	}
}
