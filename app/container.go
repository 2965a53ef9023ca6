package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/debug"
	"github.com/soocke/screen-mosaic-go/domain/capture"
	"github.com/soocke/screen-mosaic-go/domain/detection"
	"github.com/soocke/screen-mosaic-go/domain/overlay"
	"github.com/soocke/screen-mosaic-go/domain/session"
)

const (
	debugLogInterval = 10 * time.Second
	snapshotQuality  = 80
)

// AppContainer assembles the services shared by the control panel and the
// headless runner. UI pieces are added by the control panel.
type AppContainer struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	Exclusions   *capture.ExclusionList
	Snapshots    *debug.SnapshotWriter
	Orchestrator *session.Orchestrator
	Watcher      *config.Watcher

	// reloaded holds a config decoded by the watcher until the UI thread picks it up.
	reloaded atomic.Pointer[config.Config]
}

// BuildContainer constructs all non-UI components. Nothing runs until Start.
func BuildContainer(cfg *config.Config, cfgPath string, logger *slog.Logger) *AppContainer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &AppContainer{Config: cfg, ConfigPath: cfgPath, Logger: logger}
	c.Exclusions = capture.NewExclusionList(cfg.ExclusionRects())
	c.Snapshots = debug.NewSnapshotWriter(cfg.DebugDir, snapshotQuality)
	c.Orchestrator = session.NewOrchestrator(cfg, c.factory(), logger)
	if cfgPath != "" {
		c.Watcher = config.NewWatcher(cfgPath, c.onConfigFile, logger)
	}
	return c
}

func (c *AppContainer) factory() session.Factory {
	return session.Factory{
		NewGrabber: func(cfg *config.Config) (capture.Grabber, error) {
			return capture.NewGrabber(cfg.CaptureBackend)
		},
		NewEngine: newEngine,
		NewDisplay: func(cfg *config.Config, fps int) session.Display {
			return overlay.NewWindow(overlay.NativePlatform(cfg.CloseKey), overlay.Options{
				FPS:           fps,
				GuardInterval: cfg.GuardInterval(),
				StopTimeout:   cfg.ShutdownTimeout(),
			}, c.Logger)
		},
		Exclusions: c.Exclusions,
		Snapshots:  c.Snapshots,
	}
}

// newEngine loads templates from cfg.TemplateDir. Without a directory the
// session runs with an engine that never detects anything.
func newEngine(cfg *config.Config) (detection.Engine, error) {
	if cfg.TemplateDir == "" {
		return detection.Nop{}, nil
	}
	tmpls, err := detection.LoadTemplateDir(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	eng, err := detection.NewTemplateEngine(tmpls, detection.TemplateOptions{})
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// Start runs the config watcher and, in debug mode, the runtime loggers until
// ctx is done.
func (c *AppContainer) Start(ctx context.Context) {
	if c.Watcher != nil {
		go func() {
			if err := c.Watcher.Run(ctx); err != nil && c.Logger != nil {
				c.Logger.Warn("config watcher disabled", "error", err)
			}
		}()
	}
	if c.Config.Debug && c.Logger != nil {
		debug.StartGoroutineLogger(ctx, debugLogInterval, c.Logger)
		debug.StartMemLogger(ctx, debugLogInterval, c.Logger)
	}
}

// onConfigFile runs on the watcher goroutine. Exclusions apply to the live
// session at once; everything else waits for the next session.
func (c *AppContainer) onConfigFile(cfg *config.Config) {
	c.Exclusions.Set(cfg.ExclusionRects())
	c.Orchestrator.SetConfig(cfg)
	c.reloaded.Store(cfg)
}

// TakeReloaded returns the last config picked up from disk, once.
func (c *AppContainer) TakeReloaded() *config.Config { return c.reloaded.Swap(nil) }

// ApplyConfig pushes an edited configuration to the running services.
func (c *AppContainer) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.Exclusions.Set(cfg.ExclusionRects())
	c.Orchestrator.SetConfig(cfg)
}

// SaveExclusions replaces the exclusion regions, applies them to the live
// session and persists the config.
func (c *AppContainer) SaveExclusions(regions []config.Region) error {
	c.Config.ExclusionRegions = append([]config.Region(nil), regions...)
	c.ApplyConfig(c.Config)
	if c.ConfigPath == "" {
		return nil
	}
	return c.Config.Save(c.ConfigPath)
}

// Close stops any running session and the orchestrator.
func (c *AppContainer) Close() error {
	if c == nil || c.Orchestrator == nil {
		return nil
	}
	err := c.Orchestrator.Close()
	if errors.Is(err, session.ErrClosed) {
		return nil
	}
	return err
}
