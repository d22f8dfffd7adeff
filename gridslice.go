// Package gridslice cuts an image into a grid of cells, encodes every cell
// and packs them into one zip archive, reporting progress along the way.
//
// A run goes through two phases. Generating the cells accounts for the
// first half of the progress range; packing the archive is mapped onto
// 60 to 100. Between them progress jumps to 60 to mark that every cell
// has been added.
package gridslice

import (
	"fmt"
	"image/color"

	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/grid"
)

// MaxGridSize is the largest row or column count offered by the CLIs.
// The pipeline itself accepts any positive count.
const MaxGridSize = 20

// Format is an output image format.
type Format = encode.Format

// CropMode selects the region of the source that is tiled.
type CropMode = grid.CropMode

const (
	PNG  = encode.PNG
	JPG  = encode.JPG
	WEBP = encode.WEBP

	Original = grid.Original
	Square   = grid.Square
)

// Settings describe one run.
//
// A grid finer than the source, where a cell would be narrower or shorter
// than one pixel, has no surface to draw into: the run fails with
// ErrSurfaceUnavailable rather than skipping cells one by one.
type Settings struct {
	Rows     int
	Cols     int
	Format   Format
	CropMode CropMode

	// Quality for lossy formats, in (0,1]. Zero means encode.DefaultQuality.
	Quality float64
	// Background lossy formats are flattened onto. Nil means black.
	Background color.Color
	// Strict fails the whole run when a single cell cannot be encoded.
	// By default the cell is left out of the archive and reported in
	// Result.Skipped.
	Strict bool
	// Compression is the deflate level, 1 to 9. Zero uses the default.
	Compression int
	// Store writes archive entries uncompressed.
	Store bool
}

// DefaultSettings is a 3x3 png grid over the whole image.
func DefaultSettings() Settings {
	return Settings{
		Rows:     3,
		Cols:     3,
		Format:   PNG,
		CropMode: Original,
		Quality:  encode.DefaultQuality,
	}
}

// Validate reports the first problem with s, wrapped in ErrInvalidSettings.
func (s Settings) Validate() error {
	switch {
	case s.Rows < 1 || s.Cols < 1:
		return fmt.Errorf("%w: grid %dx%d, rows and cols must be at least 1", ErrInvalidSettings, s.Rows, s.Cols)
	case !s.Format.Valid():
		return fmt.Errorf("%w: format %q", ErrInvalidSettings, s.Format)
	case !s.CropMode.Valid():
		return fmt.Errorf("%w: crop mode %q", ErrInvalidSettings, s.CropMode)
	case s.Quality < 0 || s.Quality > 1:
		return fmt.Errorf("%w: quality %g not in [0,1]", ErrInvalidSettings, s.Quality)
	case s.Compression < 0 || s.Compression > 9:
		return fmt.Errorf("%w: compression level %d", ErrInvalidSettings, s.Compression)
	}
	return nil
}

func (s Settings) encoder() encode.Encoder {
	return encode.New(encode.Options{Quality: s.Quality, Background: s.Background})
}
