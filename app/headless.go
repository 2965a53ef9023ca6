package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/screen-mosaic-go/domain/session"
)

const headlessPoll = 250 * time.Millisecond

// Runner is the orchestrator surface the headless mode needs.
type Runner interface {
	Start(session.Params) error
	IsRunning() bool
	Stats() session.Stats
	Close() error
}

// RunHeadless starts one overlay session without the control panel and
// blocks until ctx is cancelled or the overlay is closed with its hotkey.
func RunHeadless(ctx context.Context, r Runner, p session.Params, logger *slog.Logger) error {
	if err := r.Start(p); err != nil {
		return err
	}
	t := time.NewTicker(headlessPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			err := r.Close()
			logSummary(logger, r.Stats(), "interrupted")
			return err
		case <-t.C:
			if !r.IsRunning() {
				err := r.Close()
				logSummary(logger, r.Stats(), "overlay closed")
				return err
			}
		}
	}
}

func logSummary(logger *slog.Logger, st session.Stats, reason string) {
	if logger == nil {
		return
	}
	logger.Info("session summary",
		"session", st.SessionID,
		"reason", reason,
		"runtime", st.Runtime.Round(time.Second).String(),
		"frames", humanize.Comma(int64(st.Frames)),
		"objects", humanize.Comma(int64(st.Objects)),
		"mosaics", humanize.Comma(int64(st.Mosaics)),
		"capture_drops", humanize.Comma(int64(st.CaptureDrops)),
	)
}
