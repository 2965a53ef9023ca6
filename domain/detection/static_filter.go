package detection

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corona10/goimagehash"
)

// StaticFrameFilter skips the wrapped engine when a frame is perceptually the
// same as the last analysed one, reusing its detections for at most maxAge.
type StaticFrameFilter struct {
	inner       Engine
	maxDistance int
	maxAge      time.Duration
	now         func() time.Time

	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
	lastConf float64
	lastDets []Detection
	lastAt   time.Time

	hits atomic.Uint64
}

// NewStaticFrameFilter wraps inner.
func NewStaticFrameFilter(inner Engine, maxDistance int, maxAge time.Duration) *StaticFrameFilter {
	return &StaticFrameFilter{inner: inner, maxDistance: maxDistance, maxAge: maxAge, now: time.Now}
}

// Detect implements Engine.
func (f *StaticFrameFilter) Detect(img *image.RGBA, confidence float64) ([]Detection, error) {
	hash, herr := goimagehash.PerceptionHash(img)
	now := f.now()
	if herr == nil {
		f.mu.Lock()
		if f.lastHash != nil && f.lastConf == confidence && now.Sub(f.lastAt) <= f.maxAge {
			if d, err := hash.Distance(f.lastHash); err == nil && d <= f.maxDistance {
				out := append([]Detection(nil), f.lastDets...)
				f.mu.Unlock()
				f.hits.Add(1)
				return out, nil
			}
		}
		f.mu.Unlock()
	}

	dets, err := f.inner.Detect(img, confidence)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	if herr == nil {
		f.lastHash = hash
		f.lastConf = confidence
		f.lastDets = append([]Detection(nil), dets...)
		f.lastAt = now
	} else {
		f.lastHash = nil
	}
	f.mu.Unlock()
	return dets, nil
}

// Hits returns how many frames reused cached detections.
func (f *StaticFrameFilter) Hits() uint64 { return f.hits.Load() }
