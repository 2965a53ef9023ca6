package capture

import "time"

// Stats summarises capture loop behaviour for instrumentation.
type Stats struct {
	Captures         uint64
	Failures         uint64
	Backoffs         uint64
	Dropped          uint64
	Reused           uint64
	DirectGrabs      uint64
	AvgCapture       time.Duration
	AvgCaptureMicros float64
	LastCapture      time.Time
	LatestFrameAge   time.Duration
	Sequence         uint64
}
