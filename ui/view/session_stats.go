package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows the current run and total overlay durations.
type SessionStats interface {
	SetRun(d time.Duration)
	SetTotal(d time.Duration)
}

type sessionStats struct {
	runLbl   *LabelWidget
	totalLbl *LabelWidget
}

// NewSessionStats grids the run label at (row, startCol) and the total label
// at (row, startCol+1), inside parent when given.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{runLbl: Label(Width(14)), totalLbl: Label(Width(14))}
	if parent != nil {
		Grid(s.runLbl, In(parent), Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
		Grid(s.totalLbl, In(parent), Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	} else {
		Grid(s.runLbl, Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
		Grid(s.totalLbl, Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	}
	s.runLbl.Configure(Txt("Run: " + clock(0)))
	s.totalLbl.Configure(Txt("Total: " + clock(0)))
	return s
}

func (s *sessionStats) SetRun(d time.Duration) {
	if s == nil || s.runLbl == nil {
		return
	}
	s.runLbl.Configure(Txt("Run: " + clock(d)))
}

func (s *sessionStats) SetTotal(d time.Duration) {
	if s == nil || s.totalLbl == nil {
		return
	}
	s.totalLbl.Configure(Txt("Total: " + clock(d)))
}

// clock formats d as HH:MM:SS.
func clock(d time.Duration) string {
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
