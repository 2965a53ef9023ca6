package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const appDir = "screen-mosaic"

// Limits applied by Validate.
const (
	MinStrength   = 1
	MaxStrength   = 50
	MinRenderFPS  = 10
	MaxRenderFPS  = 60
	MinConfidence = 0.01
	MaxConfidence = 0.99
)

// Region is an exclusion rectangle in capture (frame) coordinates.
type Region struct {
	X int `json:"x" toml:"x"`
	Y int `json:"y" toml:"y"`
	W int `json:"w" toml:"w"`
	H int `json:"h" toml:"h"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle { return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H) }

// Config holds runtime configuration for capture, detection, overlay and debug output.
// Fields may be loaded from a JSON or TOML file and overridden by command-line flags.
type Config struct {
	Debug             bool   `json:"debug" toml:"debug"`
	DebugDir          string `json:"debug_dir" toml:"debug_dir"`
	DebugSaveInterval int    `json:"debug_save_interval" toml:"debug_save_interval"`
	LogFormat         string `json:"log_format" toml:"log_format"`

	// Capture
	CaptureScale         float64  `json:"capture_scale" toml:"capture_scale"`
	CaptureBackend       string   `json:"capture_backend" toml:"capture_backend"`
	CaptureMinIntervalMS int      `json:"capture_min_interval_ms" toml:"capture_min_interval_ms"`
	QueueCapacity        int      `json:"queue_capacity" toml:"queue_capacity"`
	ExclusionRegions     []Region `json:"exclusion_regions" toml:"exclusion_regions"`

	// Overlay
	RenderFPS       int    `json:"render_fps" toml:"render_fps"`
	CloseKey        string `json:"close_key" toml:"close_key"`
	GuardIntervalMS int    `json:"guard_interval_ms" toml:"guard_interval_ms"`

	// Detection and mosaic
	ProcessFPS     int      `json:"process_fps" toml:"process_fps"`
	MosaicStrength int      `json:"mosaic_strength" toml:"mosaic_strength"`
	Confidence     float64  `json:"confidence" toml:"confidence"`
	Targets        []string `json:"targets" toml:"targets"`
	ClassNames     []string `json:"class_names" toml:"class_names"`
	TemplateDir    string   `json:"template_dir" toml:"template_dir"`

	ReuseStaticDetections bool `json:"reuse_static_detections" toml:"reuse_static_detections"`
	StaticHashDistance    int  `json:"static_hash_distance" toml:"static_hash_distance"`
	StaticReuseMaxAgeMS   int  `json:"static_reuse_max_age_ms" toml:"static_reuse_max_age_ms"`

	ShutdownTimeoutMS  int `json:"shutdown_timeout_ms" toml:"shutdown_timeout_ms"`
	StatsLogIntervalMS int `json:"stats_log_interval_ms" toml:"stats_log_interval_ms"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                 false,
		DebugDir:              defaultDebugDir(),
		DebugSaveInterval:     300,
		LogFormat:             "auto",
		CaptureScale:          1.0,
		CaptureBackend:        "auto",
		CaptureMinIntervalMS:  10,
		QueueCapacity:         3,
		RenderFPS:             30,
		CloseKey:              "Escape",
		GuardIntervalMS:       50,
		ProcessFPS:            0,
		MosaicStrength:        15,
		Confidence:            0.1,
		Targets:               []string{"face"},
		ClassNames:            []string{"face", "eyes", "hand", "foot", "body", "person", "shoes"},
		ReuseStaticDetections: false,
		StaticHashDistance:    2,
		StaticReuseMaxAgeMS:   200,
		ShutdownTimeoutMS:     1000,
		StatsLogIntervalMS:    5000,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.CaptureScale <= 0 || c.CaptureScale > 1 {
		c.CaptureScale = d.CaptureScale
	}
	c.CaptureBackend = strings.ToLower(strings.TrimSpace(c.CaptureBackend))
	switch c.CaptureBackend {
	case "auto", "gdi", "displays", "primary":
	default:
		c.CaptureBackend = d.CaptureBackend
	}
	if c.CaptureMinIntervalMS < 10 {
		c.CaptureMinIntervalMS = 10
	}
	if c.QueueCapacity < 1 {
		c.QueueCapacity = d.QueueCapacity
	}
	c.RenderFPS = clampInt(c.RenderFPS, MinRenderFPS, MaxRenderFPS)
	if c.ProcessFPS < 0 {
		c.ProcessFPS = 0
	}
	c.ProcessFPS = min(c.ProcessFPS, MaxRenderFPS)
	c.MosaicStrength = clampInt(c.MosaicStrength, MinStrength, MaxStrength)
	if c.Confidence < MinConfidence || c.Confidence > MaxConfidence {
		c.Confidence = clampFloat(c.Confidence, MinConfidence, MaxConfidence)
	}
	if c.GuardIntervalMS <= 0 {
		c.GuardIntervalMS = d.GuardIntervalMS
	}
	if strings.TrimSpace(c.CloseKey) == "" {
		c.CloseKey = d.CloseKey
	}
	if c.DebugSaveInterval <= 0 {
		c.DebugSaveInterval = d.DebugSaveInterval
	}
	if c.DebugDir == "" {
		c.DebugDir = d.DebugDir
	}
	if c.StaticHashDistance < 0 {
		c.StaticHashDistance = 0
	}
	if c.StaticReuseMaxAgeMS <= 0 {
		c.StaticReuseMaxAgeMS = d.StaticReuseMaxAgeMS
	}
	if c.ShutdownTimeoutMS <= 0 {
		c.ShutdownTimeoutMS = d.ShutdownTimeoutMS
	}
	if c.StatsLogIntervalMS <= 0 {
		c.StatsLogIntervalMS = d.StatsLogIntervalMS
	}
	c.Targets = NormalizeLabels(c.Targets)
	c.ClassNames = NormalizeLabels(c.ClassNames)
	if len(c.ClassNames) == 0 {
		c.ClassNames = d.ClassNames
	}
	regions := c.ExclusionRegions[:0]
	for _, r := range c.ExclusionRegions {
		if r.W > 0 && r.H > 0 {
			regions = append(regions, r)
		}
	}
	c.ExclusionRegions = regions
	return nil
}

// Clone returns a deep copy so sessions never observe later edits.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Targets = append([]string(nil), c.Targets...)
	out.ClassNames = append([]string(nil), c.ClassNames...)
	out.ExclusionRegions = append([]Region(nil), c.ExclusionRegions...)
	return &out
}

// ExclusionRects returns the configured exclusion regions as rectangles.
func (c *Config) ExclusionRects() []image.Rectangle {
	out := make([]image.Rectangle, 0, len(c.ExclusionRegions))
	for _, r := range c.ExclusionRegions {
		out = append(out, r.Rect())
	}
	return out
}

func (c *Config) CaptureMinInterval() time.Duration {
	return time.Duration(c.CaptureMinIntervalMS) * time.Millisecond
}

func (c *Config) GuardInterval() time.Duration {
	return time.Duration(c.GuardIntervalMS) * time.Millisecond
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

func (c *Config) StatsLogInterval() time.Duration {
	return time.Duration(c.StatsLogIntervalMS) * time.Millisecond
}

func (c *Config) StaticReuseMaxAge() time.Duration {
	return time.Duration(c.StaticReuseMaxAgeMS) * time.Millisecond
}

// NormalizeLabels trims labels and drops empties and duplicates, keeping order.
func NormalizeLabels(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	p, err := xdg.ConfigFile(filepath.Join(appDir, "config.json"))
	if err != nil {
		return "config.json"
	}
	return p
}

func defaultDebugDir() string {
	return filepath.Join(xdg.StateHome, appDir, "debug")
}

// Load attempts to read configuration from the given path. The format is chosen
// by extension (.toml, otherwise JSON). If the file does not exist it returns
// DefaultConfig(). On decode error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("config: decode %s: %w", path, err)
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path, in TOML for .toml paths and
// indented JSON otherwise.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
