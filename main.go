package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/soocke/screen-mosaic-go/app"
	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/domain/session"
)

type options struct {
	configPath string
	debug      bool
	headless   bool
	targets    []string
	strength   int
	confidence float64
	fps        int
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:          "screen-mosaic",
		Short:        "Pixelate selected objects on screen through a capture-excluded overlay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.Flags(), o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", config.DefaultPath(), "config file (.json or .toml)")
	f.BoolVar(&o.debug, "debug", false, "debug logging and frame snapshots")
	f.BoolVar(&o.headless, "headless", false, "start the overlay without the control panel")
	f.StringSliceVarP(&o.targets, "targets", "t", nil, "object classes to pixelate, comma separated")
	f.IntVar(&o.strength, "strength", 0, "mosaic block size (1-50)")
	f.Float64Var(&o.confidence, "confidence", 0, "minimum detection confidence (0.01-0.99)")
	f.IntVar(&o.fps, "fps", 0, "overlay render rate (10-60)")
	f.StringVar(&o.logFormat, "log-format", "", "log format: auto, text or json")
	return cmd
}

func run(ctx context.Context, flags *pflag.FlagSet, o *options) error {
	cfg, loadErr := config.Load(o.configPath)
	applyFlags(cfg, flags, o)
	validateErr := cfg.Validate()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level, cfg.LogFormat)
	reportConfig(logger, o.configPath, loadErr, validateErr)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := app.BuildContainer(cfg, o.configPath, logger)
	if o.headless {
		c.Start(ctx)
		return app.RunHeadless(ctx, c.Orchestrator, paramsFromConfig(cfg), logger)
	}
	app.NewApp("Screen Mosaic", 560, 760, c).Start(ctx)
	return c.Close()
}

// applyFlags overrides file values with flags the user actually set.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet, o *options) {
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("targets") {
		cfg.Targets = config.NormalizeLabels(o.targets)
	}
	if flags.Changed("strength") {
		cfg.MosaicStrength = o.strength
	}
	if flags.Changed("confidence") {
		cfg.Confidence = o.confidence
	}
	if flags.Changed("fps") {
		cfg.RenderFPS = o.fps
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
}

// reportConfig logs load and validation problems. Neither is fatal: the
// defaults or the clamped values are used.
func reportConfig(logger *slog.Logger, path string, loadErr, validateErr error) {
	if loadErr != nil {
		logger.Warn("config load failed, using defaults", "path", path, "error", loadErr)
	}
	if validateErr != nil {
		logger.Warn("config adjusted", "path", path, "error", validateErr)
	}
}

func paramsFromConfig(cfg *config.Config) session.Params {
	return session.Params{
		Targets:    cfg.Targets,
		Strength:   cfg.MosaicStrength,
		Confidence: cfg.Confidence,
		FPS:        cfg.RenderFPS,
	}
}
