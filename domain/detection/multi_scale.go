package detection

import (
	"runtime"
	"sync"
)

// scaleRange describes template scales MinScale..MaxScale in ScaleStep
// increments.
type scaleRange struct {
	MinScale  float64
	MaxScale  float64
	ScaleStep float64
}

// maxScaleSteps bounds the work of a misconfigured range.
const maxScaleSteps = 200

// factors expands the range. An invalid range evaluates the original size only.
func (r scaleRange) factors() []float64 {
	if r.MinScale <= 0 || r.MaxScale < r.MinScale || r.ScaleStep <= 0 {
		return []float64{1}
	}
	n := min(1+int((r.MaxScale-r.MinScale)/r.ScaleStep+0.5), maxScaleSteps)
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.MinScale+float64(i)*r.ScaleStep)
	}
	return out
}

// scanScales runs scanMatches for every factor on up to NumCPU goroutines and
// merges the results. scaled returns the template for a factor, or nil when
// the factor yields a degenerate size.
func scanScales(p *grayPrecomp, scaled func(factor float64) *templatePrecomp, r scaleRange, opts scanOptions) []Match {
	if p == nil || scaled == nil {
		return nil
	}
	factors := r.factors()
	perScale := make([][]Match, len(factors))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, f := range factors {
		i, f := i, f
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if pc := scaled(f); pc != nil {
				perScale[i] = scanMatches(p, pc, opts)
			}
		}()
	}
	wg.Wait()

	var all []Match
	for _, m := range perScale {
		all = append(all, m...)
	}
	return suppress(all, defaultOverlap)
}
