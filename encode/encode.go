// Package encode turns extracted cell surfaces into png, jpeg or webp blobs.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// DefaultQuality is the quality used for lossy formats.
const DefaultQuality = 0.92

// ErrEncodeFailed is returned when a surface produced no data.
var ErrEncodeFailed = errors.New("encode: failed")

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	JPG  Format = "jpg"
	WEBP Format = "webp"
)

// ParseFormat accepts png, jpg, jpeg and webp in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPG, nil
	case "webp":
		return WEBP, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == PNG || f == JPG || f == WEBP
}

// MIME type of the format; jpg maps to image/jpeg.
func (f Format) MIME() string {
	if f == JPG {
		return "image/jpeg"
	}
	return "image/" + string(f)
}

// Ext is the file extension, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Lossy formats take Quality into account.
func (f Format) Lossy() bool {
	return f == JPG
}

// Blob - encoded bytes and their MIME type
type Blob struct {
	Data []byte
	MIME string
}

// Encoder encodes one surface. Implementations must not keep img, the
// caller reuses its pixels for the next cell.
type Encoder interface {
	Encode(img image.Image, f Format) (Blob, error)
}

// Options for Standard.
type Options struct {
	// Quality in (0,1] for jpeg. Zero means DefaultQuality.
	Quality float64
	// Background the image is flattened onto for formats without alpha.
	// Nil means opaque black.
	Background color.Color
}

// Standard encodes with image/png, image/jpeg and nativewebp.
// webp output is lossless, so Quality does not apply to it.
type Standard struct {
	opts Options
	png  png.Encoder
}

// New returns a Standard encoder.
func New(opts Options) *Standard {
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = DefaultQuality
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	return &Standard{opts: opts, png: png.Encoder{CompressionLevel: png.DefaultCompression}}
}

// Quality reports the effective quality setting.
func (s *Standard) Quality() float64 {
	return s.opts.Quality
}

// Encode implements Encoder.
func (s *Standard) Encode(img image.Image, f Format) (Blob, error) {
	if img == nil || img.Bounds().Empty() {
		return Blob{}, fmt.Errorf("%w: empty surface", ErrEncodeFailed)
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		err = s.png.Encode(&buf, img)
	case JPG:
		q := int(math.Round(s.opts.Quality * 100))
		err = jpeg.Encode(&buf, s.flatten(img), &jpeg.Options{Quality: q})
	case WEBP:
		err = nativewebp.Encode(&buf, img, nil)
	default:
		return Blob{}, fmt.Errorf("%w: unknown format %q", ErrEncodeFailed, f)
	}
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %s: %v", ErrEncodeFailed, f, err)
	}
	if buf.Len() == 0 {
		return Blob{}, fmt.Errorf("%w: %s produced no data", ErrEncodeFailed, f)
	}
	return Blob{Data: buf.Bytes(), MIME: f.MIME()}, nil
}

// flatten composites img over the background colour.
func (s *Standard) flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(s.opts.Background), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
