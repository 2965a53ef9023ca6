package theme

// Control panel styling. The state badge changes colour with the overlay
// session so a running mosaic is obvious at a glance.

import (
	"github.com/soocke/screen-mosaic-go/domain/session"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	ColorBg      = "#f4f5f7"
	ColorSurface = "#ffffff"
	ColorText    = "#1f2933"
	ColorMuted   = "#6b7280"
	ColorStart   = "#4f46e5"
	ColorExit    = "#b91c1c"

	colorIdle     = "#6b7280"
	colorStarting = "#d97706"
	colorActive   = "#059669"
	colorStopping = "#b45309"
)

// Style names for Style(...).
const (
	StylePrimaryButton = "start.TButton"
	StyleDangerButton  = "exit.TButton"
	StyleMutedLabel    = "muted.TLabel"
	StyleStateLabel    = "idle.State.TLabel"

	styleStarting = "starting.State.TLabel"
	styleActive   = "active.State.TLabel"
	styleStopping = "stopping.State.TLabel"
)

// StateStyle returns the badge style for s.
func StateStyle(s session.State) string {
	switch s {
	case session.StateInitializing:
		return styleStarting
	case session.StateActive:
		return styleActive
	case session.StateStopping:
		return styleStopping
	}
	return StyleStateLabel
}

// InitStyles configures the styles above. Call once after Tk is up.
func InitStyles() {
	_ = ActivateTheme("azure light")
	App.Configure(Background(ColorBg))

	for style, bg := range map[string]string{StylePrimaryButton: ColorStart, StyleDangerButton: ColorExit} {
		StyleConfigure(style, Background(bg), Foreground("white"), Padding("4p 3p"), Relief("ridge"))
	}
	badges := map[string]string{
		StyleStateLabel: colorIdle,
		styleStarting:   colorStarting,
		styleActive:     colorActive,
		styleStopping:   colorStopping,
	}
	for style, bg := range badges {
		StyleConfigure(style, Background(bg), Foreground("white"), Padding("4p 2p"), Relief("groove"))
	}
	StyleConfigure(StyleMutedLabel, Foreground(ColorMuted), Background(ColorSurface), Padding("2p 1p"))
}
