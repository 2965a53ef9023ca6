package images

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestFitSize(t *testing.T) {
	cases := []struct{ w, h, mw, mh, ew, eh int }{
		{1920, 1080, 400, 225, 400, 225},
		{1080, 1920, 400, 225, 127, 225},
		{100, 50, 400, 225, 100, 50},
		{5000, 10, 100, 100, 100, 1},
	}
	for _, c := range cases {
		w, h := FitSize(c.w, c.h, c.mw, c.mh)
		if w != c.ew || h != c.eh {
			t.Fatalf("FitSize(%d,%d,%d,%d) = %d,%d want %d,%d", c.w, c.h, c.mw, c.mh, w, h, c.ew, c.eh)
		}
	}
}

func TestScaleToFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 600))
	out := ScaleToFit(src, 400, 400)
	if b := out.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("unexpected bounds %v", b)
	}
	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if ScaleToFit(small, 400, 400) != image.Image(small) {
		t.Fatalf("image that fits should be returned unchanged")
	}
	if ScaleToFit(nil, 1, 1) != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestEncodePNG(t *testing.T) {
	data := EncodePNG(image.NewRGBA(image.Rect(0, 0, 3, 2)))
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if EncodePNG(nil) != nil {
		t.Fatalf("nil image should encode to nil")
	}
}
