package view

import (
	"strings"
	"testing"

	"github.com/soocke/screen-mosaic-go/config"
)

func fieldByID(t *testing.T, fields []formField, id string) formField {
	t.Helper()
	for _, f := range fields {
		if f.id == id {
			return f
		}
	}
	t.Fatalf("no field %q", id)
	return formField{}
}

func TestFormFields_RoundTripAndReject(t *testing.T) {
	cfg := config.DefaultConfig()
	fields := formFields(cfg)

	strength := fieldByID(t, fields, "strength")
	if err := strength.set(cfg, "17"); err != nil || cfg.MosaicStrength != 17 {
		t.Fatalf("strength: err=%v value=%d", err, cfg.MosaicStrength)
	}
	if err := strength.set(cfg, "lots"); err == nil || cfg.MosaicStrength != 17 {
		t.Fatalf("bad strength must error and keep the value: err=%v value=%d", err, cfg.MosaicStrength)
	}

	conf := fieldByID(t, fields, "confidence")
	if err := conf.set(cfg, "0.42"); err != nil || conf.get(cfg) != "0.42" {
		t.Fatalf("confidence: err=%v text=%q", err, conf.get(cfg))
	}

	debug := fieldByID(t, fields, "debug")
	if err := debug.set(cfg, "Yes"); err != nil || !cfg.Debug {
		t.Fatalf("debug: err=%v value=%v", err, cfg.Debug)
	}
	if err := debug.set(cfg, "maybe"); err == nil {
		t.Fatal("expected an error for a non-boolean")
	}

	key := fieldByID(t, fields, "closeKey")
	before := cfg.CloseKey
	if err := key.set(cfg, ""); err != nil || cfg.CloseKey != before {
		t.Fatalf("blank close key must keep %q, got %q", before, cfg.CloseKey)
	}
	dir := fieldByID(t, fields, "templateDir")
	cfg.TemplateDir = "faces"
	if err := dir.set(cfg, ""); err != nil || cfg.TemplateDir != "" {
		t.Fatalf("template dir should be clearable, got %q", cfg.TemplateDir)
	}
}

func TestFormFields_UnknownTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	targets := fieldByID(t, formFields(cfg), "targets")
	err := targets.set(cfg, "no-such-class")
	if err == nil || !strings.Contains(err.Error(), "no-such-class") {
		t.Fatalf("expected unknown target error, got %v", err)
	}
}
