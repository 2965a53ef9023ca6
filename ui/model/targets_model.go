package model

import (
	"strings"

	"github.com/soocke/screen-mosaic-go/config"
)

// ParseTargets splits a comma or whitespace separated target list and
// normalizes it. Labels not present in known are returned separately; an
// empty known list accepts everything.
func ParseTargets(text string, known []string) (targets, unknown []string) {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' })
	targets = config.NormalizeLabels(fields)
	if len(known) == 0 {
		return targets, nil
	}
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	kept := targets[:0]
	for _, t := range targets {
		if _, ok := set[t]; ok {
			kept = append(kept, t)
		} else {
			unknown = append(unknown, t)
		}
	}
	return kept, unknown
}

// FormatTargets is the inverse of ParseTargets for display.
func FormatTargets(targets []string) string { return strings.Join(targets, ", ") }
