package view

import (
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/domain/session"
	"github.com/soocke/screen-mosaic-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the user actions the root view forwards.
type Handlers struct {
	OnToggle          func()
	OnPickExclusion   func()
	OnClearExclusions func()
	OnExit            func()
	OnConfigApplied   func(*config.Config)
}

// RootView composes the control panel layout. It satisfies the presenter
// view contracts so presenters never touch Tk directly.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session     SessionStats
	ConfigPanel ConfigPanel
	Counters    Counters
	Preview     Preview

	// Widgets
	StateLabel  *TLabelWidget
	StatusLabel *TLabelWidget
	toggleBtn   *TButtonWidget
	exclLabel   *LabelWidget
}

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout and binds h.
func (rv *RootView) Build(h Handlers) {
	if rv == nil {
		return
	}
	theme.InitStyles()

	// Row 0: state, durations and buttons
	rv.StateLabel = TLabel(Txt("State: idle"), Style(theme.StyleStateLabel))
	Grid(rv.StateLabel, Row(0), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.Session = NewSessionStats(nil, 0, 1)

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Rowspan(3), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.toggleBtn = TButton(Txt("Start Overlay"), Style(theme.StylePrimaryButton), Command(h.OnToggle))
	Grid(rv.toggleBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	pickBtn := Button(Txt("Add Exclusion"), Command(h.OnPickExclusion))
	Grid(pickBtn, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clearBtn := Button(Txt("Clear Exclusions"), Command(h.OnClearExclusions))
	Grid(clearBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(h.OnExit))
	Grid(exitBtn, In(btnFrame), Row(3), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	rv.StatusLabel = TLabel(Txt("Ready"), Style(theme.StyleMutedLabel))
	Grid(rv.StatusLabel, Row(1), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))
	rv.exclLabel = Label(Anchor("w"))
	Grid(rv.exclLabel, Row(2), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))
	rv.SetExclusionCount(len(rv.cfg.ExclusionRegions))

	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, h.OnConfigApplied)
	row := rv.ConfigPanel.Build(3)
	rv.Counters = NewCounters(row)
	rv.Preview = NewPreview(row + counterLines)
}

// SetState shows s on the state badge.
func (rv *RootView) SetState(s session.State) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt("State: "+s.String()), Style(theme.StateStyle(s)))
	}
}

// SetStatus shows a one-line status or error message.
func (rv *RootView) SetStatus(text string) {
	if rv != nil && rv.StatusLabel != nil {
		rv.StatusLabel.Configure(Txt(text))
	}
}

// SetExclusionCount shows how many exclusion regions are active.
func (rv *RootView) SetExclusionCount(n int) {
	if rv != nil && rv.exclLabel != nil {
		text := "none"
		if n > 0 {
			text = strconv.Itoa(n)
		}
		rv.exclLabel.Configure(Txt("Exclusion regions: " + text))
	}
}

// ConfigEditable toggles config panel editability and the start/stop caption.
func (rv *RootView) ConfigEditable(enabled bool) {
	if rv == nil {
		return
	}
	if rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(enabled)
	}
	if rv.toggleBtn != nil {
		if enabled {
			rv.toggleBtn.Configure(Txt("Start Overlay"))
		} else {
			rv.toggleBtn.Configure(Txt("Stop Overlay"))
		}
	}
}

// Params proxies to the config panel.
func (rv *RootView) Params() (session.Params, error) { return rv.ConfigPanel.Params() }

// PreviewReset clears the preview thumbnail.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

// UpdatePreview proxies to the preview view.
func (rv *RootView) UpdatePreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdatePreview(img)
	}
}

// SetSession updates both run and total durations.
func (rv *RootView) SetSession(run, total time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetRun(run)
	rv.Session.SetTotal(total)
}

// SetCounters proxies to the counters view.
func (rv *RootView) SetCounters(lines []string) {
	if rv != nil && rv.Counters != nil {
		rv.Counters.SetCounters(lines)
	}
}
