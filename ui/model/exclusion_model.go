package model

import (
	"image"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/soocke/screen-mosaic-go/config"
)

// ExclusionModel holds the exclusion regions in frame coordinates and converts
// screen rectangles picked in the UI into them. Updates occur on the UI
// thread; no synchronization.
type ExclusionModel struct {
	regions []config.Region
	origin  image.Point // virtual screen origin
	scale   float64     // capture downscale factor
}

// NewExclusionModel seeds the model with regions and the screen-to-frame mapping.
func NewExclusionModel(regions []config.Region, origin image.Point, scale float64) *ExclusionModel {
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	return &ExclusionModel{regions: append([]config.Region(nil), regions...), origin: origin, scale: scale}
}

// AddScreenRect converts r from screen to frame coordinates and appends it.
// Empty rectangles are ignored and reported as false.
func (m *ExclusionModel) AddScreenRect(r image.Rectangle) (config.Region, bool) {
	if m == nil || r.Empty() {
		return config.Region{}, false
	}
	r = r.Sub(m.origin)
	x0 := int(math.Floor(float64(r.Min.X) * m.scale))
	y0 := int(math.Floor(float64(r.Min.Y) * m.scale))
	x1 := int(math.Ceil(float64(r.Max.X) * m.scale))
	y1 := int(math.Ceil(float64(r.Max.Y) * m.scale))
	reg := config.Region{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
	if reg.W <= 0 || reg.H <= 0 {
		return config.Region{}, false
	}
	m.regions = append(m.regions, reg)
	return reg, true
}

// Clear removes all regions.
func (m *ExclusionModel) Clear() {
	if m != nil {
		m.regions = nil
	}
}

// Reset replaces the regions, e.g. after the config file was edited by hand.
func (m *ExclusionModel) Reset(regions []config.Region) {
	if m != nil {
		m.regions = append([]config.Region(nil), regions...)
	}
}

// Regions returns a copy of the current regions.
func (m *ExclusionModel) Regions() []config.Region {
	if m == nil {
		return nil
	}
	return append([]config.Region(nil), m.regions...)
}

// Rects returns the regions as rectangles in frame coordinates.
func (m *ExclusionModel) Rects() []image.Rectangle {
	if m == nil {
		return nil
	}
	out := make([]image.Rectangle, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r.Rect())
	}
	return out
}

// geometryRe matches Tk geometry strings in the format "WIDTHxHEIGHT+X+Y".
var geometryRe = regexp.MustCompile(`^(\d+)x(\d+)([+-]-?\d+)([+-]-?\d+)$`)

// ParseGeometry parses a Tk geometry string into a screen rectangle.
func ParseGeometry(g string) (image.Rectangle, bool) {
	m := geometryRe.FindStringSubmatch(strings.TrimSpace(g))
	if len(m) != 5 {
		return image.Rectangle{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, err1 := strconv.Atoi(strings.TrimPrefix(m[3], "+"))
	y, err2 := strconv.Atoi(strings.TrimPrefix(m[4], "+"))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}
