package view

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/domain/session"
	"github.com/soocke/screen-mosaic-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel is the settings form. It edits a *config.Config and persists it
// on ApplyChanges.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // grids widgets from startRow and returns the next free row
	SetEditable(enabled bool)
	ApplyChanges() error
	Params() (session.Params, error)
}

// formField binds one text row to a config value.
type formField struct {
	id    string
	label string
	get   func(c *config.Config) string
	set   func(c *config.Config, text string) error
}

type configPanel struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	onApplied func(*config.Config)
	fields    []formField
	inputs    map[string]*TextWidget
	applyBtn  *ButtonWidget
}

// NewConfigPanel creates the form bound to cfg. onApplied receives a copy of
// the configuration after every successful apply.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, onApplied func(*config.Config)) ConfigPanel {
	return &configPanel{
		cfg:       cfg,
		cfgPath:   cfgPath,
		logger:    logger,
		onApplied: onApplied,
		fields:    formFields(cfg),
		inputs:    make(map[string]*TextWidget),
	}
}

func formFields(cfg *config.Config) []formField {
	var classes []string
	if cfg != nil {
		classes = cfg.ClassNames
	}
	return []formField{
		{"targets", "Targets (" + strings.Join(classes, ", ") + ")",
			func(c *config.Config) string { return model.FormatTargets(c.Targets) },
			func(c *config.Config, s string) error {
				targets, unknown := model.ParseTargets(s, c.ClassNames)
				if len(unknown) > 0 {
					return fmt.Errorf("unknown targets %s", strings.Join(unknown, ", "))
				}
				c.Targets = targets
				return nil
			}},
		intField("strength", "Mosaic Strength (1-50)", func(c *config.Config) *int { return &c.MosaicStrength }),
		floatField("confidence", "Confidence (0.01-0.99)", func(c *config.Config) *float64 { return &c.Confidence }),
		intField("renderFPS", "Render FPS (10-60)", func(c *config.Config) *int { return &c.RenderFPS }),
		intField("processFPS", "Process FPS Cap (0 = none)", func(c *config.Config) *int { return &c.ProcessFPS }),
		floatField("captureScale", "Capture Scale (0-1]", func(c *config.Config) *float64 { return &c.CaptureScale }),
		stringField("captureBackend", "Capture Backend (auto/gdi/displays/primary)", false, func(c *config.Config) *string { return &c.CaptureBackend }),
		intField("queueCapacity", "Queue Capacity", func(c *config.Config) *int { return &c.QueueCapacity }),
		stringField("closeKey", "Close Key (e.g. Escape or F12)", false, func(c *config.Config) *string { return &c.CloseKey }),
		stringField("templateDir", "Template Directory", true, func(c *config.Config) *string { return &c.TemplateDir }),
		boolField("reuseStatic", "Reuse Static Detections (true/false)", func(c *config.Config) *bool { return &c.ReuseStaticDetections }),
		boolField("debug", "Debug Snapshots (true/false)", func(c *config.Config) *bool { return &c.Debug }),
	}
}

func intField(id, label string, ref func(*config.Config) *int) formField {
	return formField{id, label,
		func(c *config.Config) string { return strconv.Itoa(*ref(c)) },
		func(c *config.Config, s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%s must be a whole number", label)
			}
			*ref(c) = v
			return nil
		}}
}

func floatField(id, label string, ref func(*config.Config) *float64) formField {
	return formField{id, label,
		func(c *config.Config) string { return strconv.FormatFloat(*ref(c), 'f', 2, 64) },
		func(c *config.Config, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("%s must be a number", label)
			}
			*ref(c) = v
			return nil
		}}
}

func boolField(id, label string, ref func(*config.Config) *bool) formField {
	return formField{id, label,
		func(c *config.Config) string { return strconv.FormatBool(*ref(c)) },
		func(c *config.Config, s string) error {
			v, ok := parseBoolLoose(s)
			if !ok {
				return fmt.Errorf("%s must be true or false", label)
			}
			*ref(c) = v
			return nil
		}}
}

// stringField keeps the old value for blank input unless allowEmpty is set.
func stringField(id, label string, allowEmpty bool, ref func(*config.Config) *string) formField {
	return formField{id, label,
		func(c *config.Config) string { return *ref(c) },
		func(c *config.Config, s string) error {
			if s != "" || allowEmpty {
				*ref(c) = s
			}
			return nil
		}}
}

func (v *configPanel) Build(startRow int) int {
	row := startRow
	for _, f := range v.fields {
		lbl := Label(Txt(f.label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		in := Text(Height(1), Width(24))
		Grid(in, Row(row), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		if v.cfg != nil {
			in.Insert("1.0", f.get(v.cfg))
		}
		v.inputs[f.id] = in
		row++
	}
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { _ = v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	return row + 1
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, in := range v.inputs {
		in.Configure(State(state))
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) text(id string) string {
	in := v.inputs[id]
	if in == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(in.Get("1.0", END), ""))
}

// parseInto writes every form value into cfg and returns all input errors.
func (v *configPanel) parseInto(cfg *config.Config, ids ...string) error {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var errs []error
	for _, f := range v.fields {
		if len(want) > 0 && !want[f.id] {
			continue
		}
		if err := f.set(cfg, v.text(f.id)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Params reads the run parameters from the form without persisting them.
func (v *configPanel) Params() (session.Params, error) {
	if v.cfg == nil {
		return session.Params{}, errors.New("no configuration")
	}
	cfg := v.cfg.Clone()
	if err := v.parseInto(cfg, "targets", "strength", "confidence", "renderFPS"); err != nil {
		return session.Params{}, err
	}
	return session.Params{
		Targets:    cfg.Targets,
		Strength:   cfg.MosaicStrength,
		Confidence: cfg.Confidence,
		FPS:        cfg.RenderFPS,
	}, nil
}

// ApplyChanges validates the form, saves the config and notifies onApplied.
// Nothing is written when any field is invalid.
func (v *configPanel) ApplyChanges() error {
	if v.cfg == nil {
		return errors.New("no configuration")
	}
	cfg := v.cfg.Clone()
	if err := v.parseInto(cfg); err != nil {
		if v.logger != nil {
			v.logger.Warn("settings rejected", "error", err)
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	*v.cfg = *cfg
	if v.cfgPath != "" {
		if err := v.cfg.Save(v.cfgPath); err != nil {
			if v.logger != nil {
				v.logger.Error("config save failed", "path", v.cfgPath, "error", err)
			}
			return err
		}
		if v.logger != nil {
			v.logger.Info("config saved", "path", v.cfgPath)
		}
	}
	if v.onApplied != nil {
		v.onApplied(v.cfg.Clone())
	}
	return nil
}

func parseBoolLoose(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	}
	return false, false
}
