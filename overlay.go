package gridslice

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/submersibletoaster/pixfont"
	"golang.org/x/image/draw"

	"github.com/submersibletoaster/gridslice/grid"
)

// OverlayStyle colours the grid overlay.
type OverlayStyle struct {
	Line      color.Color
	Highlight color.Color
	// Shade darkens the part of the source outside the region.
	Shade color.Color
	// Labels draws "row_col" in every cell.
	Labels bool
}

// DefaultOverlayStyle - white lines, blue highlight, labels on
func DefaultOverlayStyle() OverlayStyle {
	blue, _ := colorful.Hex("#0071e3")
	return OverlayStyle{
		Line:      color.White,
		Highlight: withAlpha(blue, 0x60),
		Shade:     color.NRGBA{0, 0, 0, 0xa0},
		Labels:    true,
	}
}

// Overlay renders src with the grid of s drawn over it. Cells in selection
// are tinted with the highlight colour; with no selection nothing is.
func Overlay(src image.Image, s Settings, selection []int, style OverlayStyle) (*image.RGBA, error) {
	job := Job{Source: src, Settings: s, Selection: selection}
	if err := job.validate(); err != nil {
		return nil, err
	}
	out := clone.AsRGBA(src)
	ob := out.Bounds()

	b := src.Bounds()
	region := grid.Resolve(b.Dx(), b.Dy(), s.CropMode)
	layout, err := grid.NewLayout(region, s.Rows, s.Cols)
	if err != nil {
		return nil, err
	}

	fill := func(r image.Rectangle, c color.Color) {
		draw.Draw(out, r.Add(ob.Min).Intersect(ob), image.NewUniform(c), image.Point{}, draw.Over)
	}
	pix := func(r grid.Rect) image.Rectangle {
		return image.Rect(
			int(math.Round(r.X)), int(math.Round(r.Y)),
			int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
		)
	}

	inner := pix(grid.Rect{X: region.OffsetX, Y: region.OffsetY, Width: region.Width, Height: region.Height})
	for _, r := range outside(image.Rect(0, 0, b.Dx(), b.Dy()), inner) {
		fill(r, style.Shade)
	}

	if len(selection) > 0 {
		for _, i := range job.cells(layout) {
			fill(pix(layout.Cel(i).Rect), style.Highlight)
		}
	}

	for i := 0; i < layout.Count(); i++ {
		c := layout.Cel(i)
		r := pix(c.Rect)
		fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), style.Line)
		fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), style.Line)
		if c.Row == layout.Rows-1 {
			fill(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), style.Line)
		}
		if c.Col == layout.Cols-1 {
			fill(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), style.Line)
		}
		if style.Labels {
			label := fmt.Sprintf("%d_%d", c.Row+1, c.Col+1)
			pixfont.DrawString(out, ob.Min.X+r.Min.X+3, ob.Min.Y+r.Min.Y+3, label, style.Line)
		}
	}
	return out, nil
}

// outside splits the part of full not covered by inner into rectangles.
func outside(full, inner image.Rectangle) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(full.Min.X, full.Min.Y, full.Max.X, inner.Min.Y),
		image.Rect(full.Min.X, inner.Max.Y, full.Max.X, full.Max.Y),
		image.Rect(full.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, full.Max.X, inner.Max.Y),
	}
}

func withAlpha(c color.Color, a uint8) color.NRGBA {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return color.NRGBA{A: a}
	}
	r, g, b := cf.RGB255()
	return color.NRGBA{r, g, b, a}
}
