package grid

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// MaxSurfacePixels bounds the scratch surface allocation.
const MaxSurfacePixels = 1 << 28

var (
	// ErrSurfaceUnavailable is returned when no drawing target can be allocated.
	ErrSurfaceUnavailable = errors.New("grid: surface unavailable")
	// ErrSurfaceDirty is returned when a surface is drawn into without a Clear.
	ErrSurfaceDirty = errors.New("grid: surface must be cleared before reuse")
)

// Surface is a reusable scratch buffer every cell is extracted into.
// It is owned by one pipeline run and is not safe for concurrent use.
type Surface struct {
	img   *image.RGBA
	dirty bool
}

// NewSurface allocates a surface for cells of w x h source pixels. Fractional
// sizes are truncated, the same way a canvas truncates its width and height.
func NewSurface(w, h float64) (*Surface, error) {
	if math.IsNaN(w) || math.IsNaN(h) || w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: %gx%g is below one pixel", ErrSurfaceUnavailable, w, h)
	}
	if w*h > MaxSurfacePixels {
		return nil, fmt.Errorf("%w: %gx%g is too large", ErrSurfaceUnavailable, w, h)
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, int(w), int(h)))}, nil
}

// Bounds of the surface, always anchored at 0,0.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Rect
}

// Image exposes the pixels. It is overwritten by the next Extract.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Clear resets every pixel to transparent black.
func (s *Surface) Clear() {
	for i := range s.img.Pix {
		s.img.Pix[i] = 0
	}
	s.dirty = false
}

// Extract draws the part of src covered by r onto the surface, scaled to
// fill it. r is relative to the top left of src.Bounds().
//
// Rects on whole pixels whose size matches the surface are copied exactly.
// Anything else is resampled bilinearly from the exact sub-pixel source
// rectangle, so neighbouring cells never share or skip a source column.
func (s *Surface) Extract(src image.Image, r Rect) error {
	if s.dirty {
		return ErrSurfaceDirty
	}
	s.dirty = true

	sb := src.Bounds()
	db := s.img.Rect
	if aligned(r, db) {
		pt := image.Pt(sb.Min.X+int(r.X), sb.Min.Y+int(r.Y))
		draw.Draw(s.img, db, src, pt, draw.Src)
		return nil
	}

	sx := float64(db.Dx()) / r.Width
	sy := float64(db.Dy()) / r.Height
	x0 := float64(sb.Min.X) + r.X
	y0 := float64(sb.Min.Y) + r.Y
	s2d := f64.Aff3{
		sx, 0, -x0 * sx,
		0, sy, -y0 * sy,
	}
	sr := image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x0+r.Width)), int(math.Ceil(y0+r.Height)),
	).Intersect(sb)
	draw.BiLinear.Transform(s.img, s2d, src, sr, draw.Src, nil)
	return nil
}

func aligned(r Rect, db image.Rectangle) bool {
	whole := func(v float64) bool { return v == math.Trunc(v) }
	return whole(r.X) && whole(r.Y) &&
		r.Width == float64(db.Dx()) && r.Height == float64(db.Dy())
}
