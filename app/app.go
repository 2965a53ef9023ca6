package app

import (
	"context"
	"fmt"
	"image"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/screen-mosaic-go/config"
	"github.com/soocke/screen-mosaic-go/domain/capture"
	"github.com/soocke/screen-mosaic-go/ui/model"
	"github.com/soocke/screen-mosaic-go/ui/presenter"
	"github.com/soocke/screen-mosaic-go/ui/view"
)

const tick = 100 * time.Millisecond

// app is the Tk control panel. All methods run on the Tk thread.
type app struct {
	c       *AppContainer
	title   string
	width   int
	height  int
	afterID string
	cancel  context.CancelFunc

	root       *view.RootView
	picker     view.ExclusionPicker
	exclusions *model.ExclusionModel
	control    *presenter.ControlPresenter
	loop       *presenter.Loop
}

func NewApp(title string, width, height int, c *AppContainer) *app {
	return &app{c: c, title: title, width: width, height: height}
}

// Start builds the window, wires presenters and blocks in the Tk event loop
// until the window is closed.
func (a *app) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()
	a.c.Start(ctx)

	App.WmTitle(a.title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", a.width, a.height))

	cfg := a.c.Config
	a.exclusions = model.NewExclusionModel(cfg.ExclusionRegions, capture.VirtualScreen().Min, cfg.CaptureScale)
	a.root = view.NewRootView(cfg, a.c.ConfigPath, a.c.Logger)
	a.picker = view.NewExclusionPicker(capture.VirtualScreen, a.addExclusion, a.clearExclusions, a.c.Logger)

	orch := a.c.Orchestrator
	a.control = presenter.NewControlPresenter(orch, a.root, a.root)
	a.root.Build(view.Handlers{
		OnToggle:          a.control.Toggle,
		OnPickExclusion:   a.picker.OpenOrFocus,
		OnClearExclusions: a.picker.Clear,
		OnExit:            a.exitHandler,
		OnConfigApplied:   a.configApplied,
	})

	state := presenter.NewStatePresenter(a.root)
	orch.AddListener(state.OnState)
	a.loop = &presenter.Loop{
		Control:  a.control,
		State:    state,
		Session:  presenter.NewSessionPresenter(model.NewSessionModel(), orch, a.root),
		Stats:    presenter.NewStatsPresenter(orch, &model.CountersModel{}, a.root),
		Preview:  presenter.NewPreviewPresenter(orch, a.root, view.MaxPreviewW, view.MaxPreviewH),
		Schedule: a.scheduleUpdate,
	}

	a.scheduleUpdate()
	App.Wait()
}

func (a *app) update() {
	if cfg := a.c.TakeReloaded(); cfg != nil {
		a.c.Config.ExclusionRegions = cfg.ExclusionRegions
		a.exclusions.Reset(cfg.ExclusionRegions)
		a.root.SetExclusionCount(len(cfg.ExclusionRegions))
	}
	a.loop.Tick()
}

// scheduleUpdate keeps presenter ticks on Tk's event loop thread.
func (a *app) scheduleUpdate() {
	a.afterID = TclAfter(tick, a.update)
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
		a.afterID = ""
	}
	if err := a.c.Close(); err != nil && a.c.Logger != nil {
		a.c.Logger.Warn("shutdown", "error", err)
	}
	if a.cancel != nil {
		a.cancel()
	}
	Destroy(App)
}

func (a *app) configApplied(cfg *config.Config) {
	a.c.ApplyConfig(cfg)
	a.exclusions = model.NewExclusionModel(cfg.ExclusionRegions, capture.VirtualScreen().Min, cfg.CaptureScale)
	a.root.SetExclusionCount(len(cfg.ExclusionRegions))
	a.root.SetStatus("Settings saved")
}

func (a *app) addExclusion(r image.Rectangle) {
	reg, ok := a.exclusions.AddScreenRect(r)
	if !ok {
		a.root.SetStatus("Exclusion region is empty")
		return
	}
	a.saveExclusions()
	if a.c.Logger != nil {
		a.c.Logger.Info("exclusion region added", "x", reg.X, "y", reg.Y, "w", reg.W, "h", reg.H)
	}
}

func (a *app) clearExclusions() {
	a.exclusions.Clear()
	a.saveExclusions()
}

func (a *app) saveExclusions() {
	regions := a.exclusions.Regions()
	a.root.SetExclusionCount(len(regions))
	if err := a.c.SaveExclusions(regions); err != nil {
		a.root.SetStatus("Saving exclusions failed: " + err.Error())
		if a.c.Logger != nil {
			a.c.Logger.Error("exclusion save failed", "error", err)
		}
		return
	}
	a.root.SetStatus(fmt.Sprintf("Exclusion regions: %d", len(regions)))
}
