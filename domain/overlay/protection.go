package overlay

import "strings"

// Protection is the set of guarantees currently held by an overlay window.
// Each flag is acquired and released on its own.
type Protection uint32

const (
	CaptureExcluded Protection = 1 << iota
	ClickThroughEnabled
	TopmostEnforced

	Unprotected Protection = 0
)

// Has reports whether every flag in f is set.
func (p Protection) Has(f Protection) bool { return p&f == f }

func (p Protection) String() string {
	if p == Unprotected {
		return "unprotected"
	}
	var parts []string
	if p.Has(CaptureExcluded) {
		parts = append(parts, "capture-excluded")
	}
	if p.Has(ClickThroughEnabled) {
		parts = append(parts, "click-through")
	}
	if p.Has(TopmostEnforced) {
		parts = append(parts, "topmost")
	}
	return strings.Join(parts, "|")
}
