package detection

import (
	"image"
	"math"
	"sort"
)

// flatVariance is the window variance below which NCC is undefined.
const flatVariance = 1e-9

// grayPrecomp is a frame converted to luma plus zero-padded summed-area tables
// of luma and luma squared. Table stride is W+1; row and column 0 are zero so
// window sums need no bounds checks.
type grayPrecomp struct {
	W, H  int
	gray  []float64
	sum   []float64
	sumSq []float64
}

// templatePrecomp is a template in luma with its mean and standard deviation.
type templatePrecomp struct {
	W, H int
	gray []float32
	mean float64
	std  float64
}

// luma uses Rec. 709 weights on 16-bit channels.
func luma(r, g, b uint32) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

func buildGrayPrecomp(frame *image.RGBA) *grayPrecomp {
	if frame == nil || frame.Rect.Empty() {
		return nil
	}
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	stride := w + 1
	p := &grayPrecomp{
		W:     w,
		H:     h,
		gray:  make([]float64, w*h),
		sum:   make([]float64, stride*(h+1)),
		sumSq: make([]float64, stride*(h+1)),
	}
	for y := 0; y < h; y++ {
		src := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		above, cur := y*stride, (y+1)*stride
		var run, runSq float64
		for x := 0; x < w; x++ {
			px := src[x*4 : x*4+4]
			var v float64
			if px[3] != 0 {
				v = luma(uint32(px[0])*0x101, uint32(px[1])*0x101, uint32(px[2])*0x101)
			}
			p.gray[y*w+x] = v
			run += v
			runSq += v * v
			p.sum[cur+x+1] = p.sum[above+x+1] + run
			p.sumSq[cur+x+1] = p.sumSq[above+x+1] + runSq
		}
	}
	return p
}

// window returns the sum and sum of squares over the w*h window at (x, y).
func (p *grayPrecomp) window(x, y, w, h int) (s, sq float64) {
	stride := p.W + 1
	a, b := y*stride+x, y*stride+x+w
	c, d := (y+h)*stride+x, (y+h)*stride+x+w
	return p.sum[d] - p.sum[b] - p.sum[c] + p.sum[a], p.sumSq[d] - p.sumSq[b] - p.sumSq[c] + p.sumSq[a]
}

// newTemplatePrecomp converts tmpl to luma. Transparent pixels read as zero.
func newTemplatePrecomp(tmpl image.Image) *templatePrecomp {
	if tmpl == nil {
		return nil
	}
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	gray := make([]float32, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := tmpl.At(x, y).RGBA()
			if a == 0 {
				gray = append(gray, 0)
				continue
			}
			gray = append(gray, float32(luma(r, g, bl)))
		}
	}
	return withStats(gray, w, h)
}

func withStats(gray []float32, w, h int) *templatePrecomp {
	n := float64(len(gray))
	var s, sq float64
	for _, v := range gray {
		s += float64(v)
		sq += float64(v) * float64(v)
	}
	pc := &templatePrecomp{W: w, H: h, gray: gray, mean: s / n}
	if v := sq/n - pc.mean*pc.mean; v > 0 {
		pc.std = math.Sqrt(v)
	}
	return pc
}

// resize returns pc scaled by factor with bilinear sampling of the luma
// plane. Templates smaller than 2x2 after scaling are rejected.
func (pc *templatePrecomp) resize(factor float64) *templatePrecomp {
	if pc == nil || factor <= 0 {
		return nil
	}
	if factor == 1 {
		return pc
	}
	w, h := int(float64(pc.W)*factor), int(float64(pc.H)*factor)
	if w < 2 || h < 2 {
		return nil
	}
	sx, sy := float64(pc.W)/float64(w), float64(pc.H)/float64(h)
	sample := func(x, y int) float64 { return float64(pc.gray[y*pc.W+x]) }
	out := make([]float32, 0, w*h)
	for y := 0; y < h; y++ {
		fy := clampf((float64(y)+0.5)*sy-0.5, 0, float64(pc.H-1))
		y0 := int(fy)
		y1 := min(y0+1, pc.H-1)
		ty := fy - float64(y0)
		for x := 0; x < w; x++ {
			fx := clampf((float64(x)+0.5)*sx-0.5, 0, float64(pc.W-1))
			x0 := int(fx)
			x1 := min(x0+1, pc.W-1)
			tx := fx - float64(x0)
			top := sample(x0, y0) + (sample(x1, y0)-sample(x0, y0))*tx
			bot := sample(x0, y1) + (sample(x1, y1)-sample(x0, y1))*tx
			out = append(out, float32(top+(bot-top)*ty))
		}
	}
	return withStats(out, w, h)
}

func clampf(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }

// score is the normalized cross-correlation of pc placed at (x, y). It
// reports false for flat frame windows.
func (p *grayPrecomp) score(pc *templatePrecomp, x, y int) (float64, bool) {
	n := float64(pc.W * pc.H)
	s, sq := p.window(x, y, pc.W, pc.H)
	mean := s / n
	v := sq/n - mean*mean
	if v <= flatVariance {
		return 0, false
	}
	var cross float64
	for ty := 0; ty < pc.H; ty++ {
		row := p.gray[(y+ty)*p.W+x : (y+ty)*p.W+x+pc.W]
		for tx, t := range pc.gray[ty*pc.W : (ty+1)*pc.W] {
			cross += row[tx] * float64(t)
		}
	}
	return (cross - n*mean*pc.mean) / (n * math.Sqrt(v) * pc.std), true
}

// Match is one placement of a template in work-image coordinates.
type Match struct {
	Rect  image.Rectangle
	Score float64
}

// scanOptions tunes scanMatches.
type scanOptions struct {
	Threshold  float64
	Stride     int
	MaxMatches int // candidates kept after the coarse pass
}

// coarseSlack admits coarse-grid candidates slightly below the threshold
// because the true peak may sit between grid points.
const coarseSlack = 0.1

// scanMatches scores pc at every Stride-th position, refines the best
// candidates at pixel step within their grid cell and returns the placements
// scoring at least Threshold, strongest first, with overlaps suppressed.
func scanMatches(p *grayPrecomp, pc *templatePrecomp, opts scanOptions) []Match {
	if p == nil || pc == nil || pc.std <= flatVariance || pc.W > p.W || pc.H > p.H {
		return nil
	}
	stride := max(opts.Stride, 1)
	limit := opts.MaxMatches
	if limit <= 0 {
		limit = 32
	}
	maxX, maxY := p.W-pc.W, p.H-pc.H

	var cands []Match
	for y := 0; y <= maxY; y += stride {
		for x := 0; x <= maxX; x += stride {
			if s, ok := p.score(pc, x, y); ok && s >= opts.Threshold-coarseSlack {
				cands = append(cands, Match{Rect: image.Rect(x, y, x+pc.W, y+pc.H), Score: s})
			}
		}
	}
	sortMatches(cands)
	if len(cands) > limit {
		cands = cands[:limit]
	}

	out := cands[:0]
	for _, c := range cands {
		best := c
		if stride > 1 {
			x0, y0 := c.Rect.Min.X, c.Rect.Min.Y
			for y := max(0, y0-stride+1); y <= min(maxY, y0+stride-1); y++ {
				for x := max(0, x0-stride+1); x <= min(maxX, x0+stride-1); x++ {
					if s, ok := p.score(pc, x, y); ok && s > best.Score {
						best = Match{Rect: image.Rect(x, y, x+pc.W, y+pc.H), Score: s}
					}
				}
			}
		}
		if best.Score >= opts.Threshold {
			out = append(out, best)
		}
	}
	return suppress(out, defaultOverlap)
}

// defaultOverlap is the intersection-over-union above which the weaker of two
// matches is dropped.
const defaultOverlap = 0.3

func sortMatches(m []Match) {
	sort.SliceStable(m, func(i, j int) bool { return m[i].Score > m[j].Score })
}

// suppress performs greedy non-maximum suppression.
func suppress(m []Match, overlap float64) []Match {
	sortMatches(m)
	kept := make([]Match, 0, len(m))
	for _, c := range m {
		dup := false
		for _, k := range kept {
			if iou(c.Rect, k.Rect) > overlap {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	in := a.Intersect(b)
	if in.Empty() {
		return 0
	}
	ia := float64(in.Dx() * in.Dy())
	return ia / (float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia)
}
