package model

import (
	"time"
)

// SessionModel tracks the current overlay run duration, the accumulated
// active time and how many runs were started. Presenters poll Values().
// The zero value is ready to use.
type SessionModel struct {
	active      bool
	startedAt   time.Time
	lastRun     time.Duration
	accumulated time.Duration
	runs        int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick advances the model with the current running state.
func (m *SessionModel) OnTick(running bool, now time.Time) {
	if m == nil {
		return
	}
	if running {
		if !m.active {
			m.active = true
			m.startedAt = now
			m.lastRun = 0
			m.runs++
		}
		m.lastRun = now.Sub(m.startedAt)
	} else if m.active {
		m.lastRun = now.Sub(m.startedAt)
		m.accumulated += m.lastRun
		m.active = false
	}
}

// Values returns the current (or last) run duration and the total active
// time, which includes the ongoing run.
func (m *SessionModel) Values() (run, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	run = m.lastRun
	total = m.accumulated
	if m.active {
		total += run
	}
	return
}

// Runs returns how many runs have been observed.
func (m *SessionModel) Runs() int {
	if m == nil {
		return 0
	}
	return m.runs
}
