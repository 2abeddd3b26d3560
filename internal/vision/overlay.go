package vision

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	boxThickness = 2
	labelPadding = 4
)

// Annotation marks one detected face on a preview frame.
type Annotation struct {
	Rect  image.Rectangle
	Label string
	Hue   float64 // degrees on the HSV wheel
}

// Color returns the overlay colour for the annotation.
func (a Annotation) Color() color.RGBA {
	r, g, b := colorful.Hsv(a.Hue, 0.9, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Annotate draws a box and label for every annotation on a copy of frame.
func Annotate(frame image.Image, anns []Annotation) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), frame, b.Min, draw.Src)

	for _, a := range anns {
		c := a.Color()
		drawBox(out, a.Rect.Intersect(out.Bounds()), c)
		drawLabel(out, a.Rect, a.Label, c)
	}
	return out
}

func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text just above the box, or inside it when the box
// touches the top edge.
func drawLabel(img *image.RGBA, r image.Rectangle, text string, c color.RGBA) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	y := r.Min.Y - labelPadding
	if y-face.Ascent < 0 {
		y = r.Min.Y + face.Ascent + labelPadding
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X, y),
	}
	d.DrawString(text)
}
