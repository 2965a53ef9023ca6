package presenter

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/screen-mosaic-go/domain/session"
	"github.com/soocke/screen-mosaic-go/ui/model"
)

// StatsSource supplies session counters.
type StatsSource interface{ Stats() session.Stats }

// CountersView shows formatted counter lines.
type CountersView interface {
	SetCounters(lines []string)
}

// StatsPresenter polls counters and renders them for the control panel.
type StatsPresenter struct {
	src   StatsSource
	model *model.CountersModel
	view  CountersView
	last  []string
}

func NewStatsPresenter(src StatsSource, m *model.CountersModel, view CountersView) *StatsPresenter {
	return &StatsPresenter{src: src, model: m, view: view}
}

// Tick refreshes the view when the formatted counters change.
func (p *StatsPresenter) Tick(now time.Time) {
	if p == nil || p.src == nil || p.model == nil || p.view == nil {
		return
	}
	p.model.Update(p.src.Stats(), now)
	lines := FormatCounters(p.model.Latest(), p.model.ProcessRate())
	if equalLines(lines, p.last) {
		return
	}
	p.last = lines
	p.view.SetCounters(lines)
}

// FormatCounters renders counters as short display lines.
func FormatCounters(st session.Stats, processFPS float64) []string {
	return []string{
		fmt.Sprintf("Frames: %s  Objects: %s  Mosaics: %s",
			humanize.Comma(int64(st.Frames)), humanize.Comma(int64(st.Objects)), humanize.Comma(int64(st.Mosaics))),
		fmt.Sprintf("Process: %.1f fps  Render: %.1f fps  Drops: %s",
			processFPS, st.RenderFPS, humanize.Comma(int64(st.CaptureDrops))),
		fmt.Sprintf("Protection: %s  Reasserts: %d/%d",
			st.Protection, st.WatchdogReasserts, st.HookReasserts),
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
