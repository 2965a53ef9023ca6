package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"
)

var ErrNoTemplates = errors.New("detection: no templates loaded")

// Template is a labelled reference image matched against frames.
type Template struct {
	Label string
	Image image.Image
}

// TemplateOptions tunes the template engine. Zero values select defaults.
type TemplateOptions struct {
	WorkWidth int // frames wider than this are downsampled before matching
	MinScale  float64
	MaxScale  float64
	ScaleStep float64
	Stride    int
	CacheSize int // scaled template pyramids kept in memory

	MaxPerTemplate int // candidate placements refined per template and scale
}

func (o TemplateOptions) withDefaults() TemplateOptions {
	if o.WorkWidth <= 0 {
		o.WorkWidth = 640
	}
	if o.MinScale <= 0 {
		o.MinScale = 0.5
	}
	if o.MaxScale < o.MinScale {
		o.MaxScale = 1.5
	}
	if o.ScaleStep <= 0 {
		o.ScaleStep = 0.25
	}
	if o.Stride <= 0 {
		o.Stride = 2
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
	if o.MaxPerTemplate <= 0 {
		o.MaxPerTemplate = 16
	}
	return o
}

type templateEntry struct {
	id    int
	label string
	base  *templatePrecomp
}

type scaledKey struct {
	id    int
	milli int // factor * 1000
}

// TemplateEngine is an Engine that finds labelled templates in a frame using
// multi-scale normalized cross-correlation. Every non-overlapping placement
// scoring above the confidence threshold is reported with the NCC score as
// confidence.
type TemplateEngine struct {
	templates []templateEntry
	cache     *lru.Cache[scaledKey, *templatePrecomp]
	opts      TemplateOptions
}

// NewTemplateEngine precomputes grayscale data for templates.
func NewTemplateEngine(templates []Template, opts TemplateOptions) (*TemplateEngine, error) {
	opts = opts.withDefaults()
	cache, err := lru.New[scaledKey, *templatePrecomp](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	e := &TemplateEngine{cache: cache, opts: opts}
	for i, t := range templates {
		pc := newTemplatePrecomp(t.Image)
		if pc == nil || strings.TrimSpace(t.Label) == "" {
			continue
		}
		e.templates = append(e.templates, templateEntry{id: i, label: strings.TrimSpace(t.Label), base: pc})
	}
	if len(e.templates) == 0 {
		return nil, ErrNoTemplates
	}
	return e, nil
}

// Labels returns the distinct template labels, sorted.
func (e *TemplateEngine) Labels() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range e.templates {
		if _, ok := seen[t.label]; !ok {
			seen[t.label] = struct{}{}
			out = append(out, t.label)
		}
	}
	sort.Strings(out)
	return out
}

// Detect implements Engine.
func (e *TemplateEngine) Detect(img *image.RGBA, confidence float64) ([]Detection, error) {
	if img == nil || img.Rect.Empty() {
		return nil, nil
	}
	work, factor := e.workImage(img)
	pre := buildGrayPrecomp(work)
	scales := scaleRange{MinScale: e.opts.MinScale, MaxScale: e.opts.MaxScale, ScaleStep: e.opts.ScaleStep}
	scan := scanOptions{Threshold: confidence, Stride: e.opts.Stride, MaxMatches: e.opts.MaxPerTemplate}
	var out []Detection
	for _, t := range e.templates {
		matches := scanScales(pre, func(s float64) *templatePrecomp { return e.scaled(t, s*factor) }, scales, scan)
		for _, m := range matches {
			box := image.Rect(
				int(math.Floor(float64(m.Rect.Min.X)/factor)),
				int(math.Floor(float64(m.Rect.Min.Y)/factor)),
				int(math.Ceil(float64(m.Rect.Max.X)/factor)),
				int(math.Ceil(float64(m.Rect.Max.Y)/factor)),
			).Add(img.Rect.Min).Intersect(img.Rect)
			out = append(out, Detection{Label: t.label, Confidence: math.Max(0, math.Min(1, m.Score)), Box: box})
		}
	}
	return out, nil
}

// workImage returns img, or a bilinear downsample of it when wider than
// WorkWidth, plus the applied factor.
func (e *TemplateEngine) workImage(img *image.RGBA) (*image.RGBA, float64) {
	b := img.Rect
	if b.Dx() <= e.opts.WorkWidth {
		return img, 1
	}
	factor := float64(e.opts.WorkWidth) / float64(b.Dx())
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, e.opts.WorkWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst, factor
}

func (e *TemplateEngine) scaled(t templateEntry, factor float64) *templatePrecomp {
	key := scaledKey{id: t.id, milli: int(math.Round(factor * 1000))}
	if pc, ok := e.cache.Get(key); ok {
		return pc
	}
	pc := t.base.resize(factor)
	if pc != nil {
		e.cache.Add(key, pc)
	}
	return pc
}

// LoadTemplateDir reads every image in dir as a template. The label is the
// file name up to its first dot, so "face.2.png" is labelled "face".
func LoadTemplateDir(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Template
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".gif":
		default:
			continue
		}
		img, err := imaging.Open(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, fmt.Errorf("detection: load template %s: %w", ent.Name(), err)
		}
		label, _, _ := strings.Cut(ent.Name(), ".")
		out = append(out, Template{Label: label, Image: img})
	}
	if len(out) == 0 {
		return nil, ErrNoTemplates
	}
	return out, nil
}
