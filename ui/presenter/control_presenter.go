package presenter

import (
	"github.com/soocke/screen-mosaic-go/domain/session"
)

// Controller is the part of the orchestrator the control buttons drive.
type Controller interface {
	Start(session.Params) error
	Stop() error
	IsRunning() bool
}

// ParamsSource reads the run parameters currently entered in the form.
type ParamsSource interface {
	Params() (session.Params, error)
}

// ControlView updates UI elements affected by starting and stopping.
type ControlView interface {
	PreviewReset()
	ConfigEditable(bool)
	SetStatus(string)
}

// ControlPresenter owns presentation logic for starting and stopping the overlay.
type ControlPresenter struct {
	ctrl    Controller
	params  ParamsSource
	view    ControlView
	engaged bool // view is in the running layout
}

func NewControlPresenter(ctrl Controller, params ParamsSource, view ControlView) *ControlPresenter {
	return &ControlPresenter{ctrl: ctrl, params: params, view: view}
}

// Start launches a session with the form parameters and locks the form.
// Failures are reported through the status line. Idempotent.
func (c *ControlPresenter) Start() {
	if c == nil || c.ctrl == nil || c.params == nil || c.view == nil {
		return
	}
	if c.ctrl.IsRunning() {
		return
	}
	p, err := c.params.Params()
	if err != nil {
		c.view.SetStatus("Invalid settings: " + err.Error())
		return
	}
	if err := c.ctrl.Start(p); err != nil {
		c.view.SetStatus("Start failed: " + err.Error())
		return
	}
	c.engaged = true
	c.view.ConfigEditable(false)
	c.view.SetStatus("Running")
}

// Stop ends the session and unlocks the form. Idempotent.
func (c *ControlPresenter) Stop() {
	if c == nil || c.ctrl == nil || c.view == nil {
		return
	}
	if !c.ctrl.IsRunning() && !c.engaged {
		return
	}
	if err := c.ctrl.Stop(); err != nil {
		c.view.SetStatus("Stop failed: " + err.Error())
	} else {
		c.view.SetStatus("Stopped")
	}
	c.release()
}

// Toggle flips between Start and Stop.
func (c *ControlPresenter) Toggle() {
	if c == nil || c.ctrl == nil {
		return
	}
	if c.ctrl.IsRunning() {
		c.Stop()
		return
	}
	c.Start()
}

// Tick notices sessions that ended on their own (overlay closed with the
// close key) and restores the idle layout.
func (c *ControlPresenter) Tick() {
	if c == nil || c.ctrl == nil || c.view == nil {
		return
	}
	if c.engaged && !c.ctrl.IsRunning() {
		c.view.SetStatus("Overlay closed")
		c.release()
	}
}

func (c *ControlPresenter) release() {
	c.engaged = false
	c.view.PreviewReset()
	c.view.ConfigEditable(true)
}
