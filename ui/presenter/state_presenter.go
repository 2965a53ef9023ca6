package presenter

import (
	"sync"
	"time"

	"github.com/soocke/screen-mosaic-go/domain/session"
)

// StateView shows the current session state.
type StateView interface{ SetState(session.State) }

// StatePresenter receives session transitions from the orchestrator's
// goroutine and reflects the latest one on the next UI tick.
type StatePresenter struct {
	view    StateView
	mu      sync.Mutex
	pending []session.State
	latest  session.State
	shown   bool
}

func NewStatePresenter(view StateView) *StatePresenter {
	return &StatePresenter{view: view}
}

// OnState queues a transition. Safe to call from any goroutine.
func (p *StatePresenter) OnState(_, next session.State) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Tick flushes queued states and updates the view with the most recent one.
func (p *StatePresenter) Tick(time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	last := p.pending[len(p.pending)-1]
	p.pending = p.pending[:0]
	p.mu.Unlock()
	if !p.shown || last != p.latest {
		p.latest, p.shown = last, true
		p.view.SetState(last)
	}
}
