package model

import (
	"time"

	"github.com/soocke/screen-mosaic-go/domain/session"
)

// CountersModel keeps the latest session counters and derives the processing
// rate between polls. Updated from the UI tick only.
type CountersModel struct {
	latest     session.Stats
	prevFrames uint64
	prevAt     time.Time
	rate       float64
}

// Update records st observed at now.
func (m *CountersModel) Update(st session.Stats, now time.Time) {
	if m == nil {
		return
	}
	if st.SessionID != m.latest.SessionID || st.Frames < m.prevFrames {
		m.prevFrames, m.prevAt, m.rate = st.Frames, now, 0
	} else if dt := now.Sub(m.prevAt); dt >= time.Second {
		m.rate = float64(st.Frames-m.prevFrames) / dt.Seconds()
		m.prevFrames, m.prevAt = st.Frames, now
	}
	m.latest = st
}

// Latest returns the last recorded counters.
func (m *CountersModel) Latest() session.Stats {
	if m == nil {
		return session.Stats{}
	}
	return m.latest
}

// ProcessRate returns processed frames per second over the last window.
func (m *CountersModel) ProcessRate() float64 {
	if m == nil {
		return 0
	}
	return m.rate
}
