package view

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/screen-mosaic-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

const pickerKey = "#008080" // transparent color of the picker body

// ExclusionPicker opens a transparent, resizable window the user places over
// an area that must never be fed to detection. Confirm hands the window's
// screen rectangle to onPick.
type ExclusionPicker interface {
	OpenOrFocus()
	Clear()
}

type exclusionPicker struct {
	logger  *slog.Logger
	screen  func() image.Rectangle
	onPick  func(image.Rectangle)
	onClear func()
	win     *ToplevelWidget
}

// NewExclusionPicker creates the picker. screen returns the virtual screen
// rectangle used for the initial placement.
func NewExclusionPicker(screen func() image.Rectangle, onPick func(image.Rectangle), onClear func(), logger *slog.Logger) ExclusionPicker {
	return &exclusionPicker{logger: logger, screen: screen, onPick: onPick, onClear: onClear}
}

func (v *exclusionPicker) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background(pickerKey))
	win.WmTitle("Exclusion Region")
	v.win = win
	WmGeometry(win.Window, v.placement())
	for _, attr := range [][2]any{{"-topmost", 1}, {"-toolwindow", true}, {"-transparentcolor", pickerKey}} {
		WmAttributes(win.Window, attr[0], attr[1])
	}

	// White side rails make the see-through body visible while dragging.
	GridRowConfigure(win.Window, 0, Weight(1))
	for col, weight := range []int{0, 1, 0} {
		GridColumnConfigure(win.Window, col, Weight(weight))
	}
	Grid(win.Frame(Width(4), Background("#FFFFFF")), Row(0), Column(0), Sticky("ns"))
	Grid(win.Frame(Background(pickerKey)), Row(0), Column(1), Sticky("nsew"))
	Grid(win.Frame(Width(4), Background("#FFFFFF")), Row(0), Column(2), Sticky("ns"))

	bar := win.Frame()
	Grid(bar, Row(1), Column(0), Columnspan(3), Sticky("we"))
	buttons := []struct {
		text string
		fn   func()
	}{
		{"Add Region [Enter]", v.confirm},
		{"Cancel [Esc]", v.destroy},
		{"Clear All", v.Clear},
	}
	for i, b := range buttons {
		Grid(win.Button(Txt(b.text), Command(b.fn)), In(bar), Row(0), Column(i), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	}
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.destroy))
}

// placement centres a window a third of the screen in size.
func (v *exclusionPicker) placement() string {
	scr := image.Rect(0, 0, 1920, 1080)
	if v.screen != nil {
		if r := v.screen(); !r.Empty() {
			scr = r
		}
	}
	w, h := max(scr.Dx()/3, 1), max(scr.Dy()/3, 1)
	return fmt.Sprintf("%dx%d+%d+%d", w, h, scr.Min.X+(scr.Dx()-w)/2, scr.Min.Y+(scr.Dy()-h)/2)
}

func (v *exclusionPicker) Clear() {
	if v.onClear != nil {
		v.onClear()
	}
}

func (v *exclusionPicker) confirm() {
	if v.win == nil {
		return
	}
	geom := WmGeometry(v.win.Window)
	if rect, ok := model.ParseGeometry(geom); ok {
		if v.onPick != nil {
			v.onPick(rect)
		}
	} else if v.logger != nil {
		v.logger.Warn("unparsable picker geometry", "geometry", geom)
	}
	v.destroy()
}

func (v *exclusionPicker) destroy() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}
