package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/soocke/screen-mosaic-go/config"
)

func TestApplyFlags_OnlyChangedOverride(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.Flags().Parse([]string{"--targets", "hand, face", "--fps", "45"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.MosaicStrength = 22
	cfg.Debug = true

	var o options
	o.targets, _ = cmd.Flags().GetStringSlice("targets")
	o.fps, _ = cmd.Flags().GetInt("fps")
	applyFlags(cfg, cmd.Flags(), &o)

	if len(cfg.Targets) != 2 || cfg.Targets[0] != "hand" || cfg.Targets[1] != "face" {
		t.Fatalf("targets not applied: %v", cfg.Targets)
	}
	if cfg.RenderFPS != 45 {
		t.Fatalf("fps not applied: %d", cfg.RenderFPS)
	}
	if cfg.MosaicStrength != 22 || !cfg.Debug {
		t.Fatalf("unset flags must keep file values: %+v", cfg)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	p := paramsFromConfig(cfg)
	if p.Strength != cfg.MosaicStrength || p.FPS != cfg.RenderFPS || len(p.Targets) != len(cfg.Targets) {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo, "auto", false).Info("hello", "k", 1)
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("auto without a terminal should log JSON: %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, slog.LevelInfo, "auto", true).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("auto on a terminal should log text: %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, slog.LevelWarn, "json", true).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("level not honoured: %q", buf.String())
	}
}

func TestReportConfig_WarnsOnValidationError(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo, "text", true)

	reportConfig(logger, "cfg.toml", nil, nil)
	if buf.Len() != 0 {
		t.Fatalf("nothing to report, got %q", buf.String())
	}

	reportConfig(logger, "cfg.toml", nil, errors.New("fps out of range"))
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "fps out of range") {
		t.Fatalf("validation error not logged as a warning: %q", out)
	}
}
