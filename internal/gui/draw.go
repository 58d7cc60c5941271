package gui

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

func drawScreen(dst *image.RGBA, s *Screen) {
	xdraw.Draw(dst, dst.Bounds(), &image.Uniform{s.Background}, image.Point{}, xdraw.Src)
	for _, w := range s.widgets {
		if w.hidden {
			continue
		}
		switch w.Kind {
		case KindLabel:
			drawText(dst, w.Rect.Min, w.Text, w.Color, w.Scale)
		case KindBar:
			drawBar(dst, w)
		case KindIcon:
			xdraw.Draw(dst, w.Rect, &image.Uniform{w.Fill}, image.Point{}, xdraw.Src)
			drawText(dst, w.Rect.Min.Add(image.Pt(4, 4)), w.Text, w.Color, w.Scale)
		}
	}
}

// drawText renders text at 1x into a scratch image and scales it up with
// nearest-neighbour so the 7x13 bitmap font stays crisp.
func drawText(dst *image.RGBA, at image.Point, text string, c color.RGBA, scale int) {
	if text == "" {
		return
	}
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	scratch := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  scratch,
		Src:  &image.Uniform{c},
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	target := image.Rect(at.X, at.Y, at.X+width*scale, at.Y+height*scale)
	xdraw.NearestNeighbor.Scale(dst, target, scratch, scratch.Bounds(), xdraw.Over, nil)
}

func drawBar(dst *image.RGBA, w *Widget) {
	r := w.Rect
	xdraw.Draw(dst, r, &image.Uniform{w.Color}, image.Point{}, xdraw.Src)
	inner := r.Inset(2)
	if w.Max <= 0 || inner.Empty() {
		return
	}
	filled := inner
	filled.Max.X = inner.Min.X + inner.Dx()*w.shown/w.Max
	xdraw.Draw(dst, filled, &image.Uniform{w.Fill}, image.Point{}, xdraw.Src)
}
