package view

import (
	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

const counterLines = 3

// Counters renders the session counter lines.
type Counters interface {
	SetCounters(lines []string)
}

type counters struct{ labels []*LabelWidget }

// NewCounters grids one label per counter line starting at row.
func NewCounters(row int) Counters {
	c := &counters{}
	for i := 0; i < counterLines; i++ {
		l := Label(Anchor("w"), Txt(""))
		Grid(l, Row(row+i), Column(0), Columnspan(5), Sticky("we"), Padx("0.4m"))
		c.labels = append(c.labels, l)
	}
	return c
}

func (c *counters) SetCounters(lines []string) {
	if c == nil {
		return
	}
	for i, l := range c.labels {
		text := ""
		if i < len(lines) {
			text = lines[i]
		}
		l.Configure(Txt(text))
	}
}
