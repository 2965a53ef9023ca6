package view

import (
	"image"

	"github.com/soocke/screen-mosaic-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Preview shows a thumbnail of the processed output.
type Preview interface {
	UpdatePreview(img image.Image)
	Reset()
}

type preview struct {
	label *LabelWidget
	photo *Img // current Tk photo; deleted before replacement
}

// Max preview dimensions.
const (
	MaxPreviewW = 400
	MaxPreviewH = 225
)

// NewPreview creates the preview label spanning the panel at row.
func NewPreview(row int) Preview {
	photo := NewPhoto(Data(placeholderPNG()))
	l := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(l, Row(row), Column(0), Columnspan(5), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &preview{label: l, photo: photo}
}

func (v *preview) UpdatePreview(img image.Image) {
	if v == nil || v.label == nil || img == nil {
		return
	}
	v.replace(images.EncodePNG(img))
}

func (v *preview) Reset() {
	if v == nil || v.label == nil {
		return
	}
	v.replace(placeholderPNG())
}

func (v *preview) replace(png []byte) {
	if v.photo != nil {
		v.photo.Delete()
	}
	v.photo = NewPhoto(Data(png))
	v.label.Configure(Image(v.photo))
}

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, MaxPreviewW/2, MaxPreviewH/2)))
}
