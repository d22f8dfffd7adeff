// Package source loads the image a grid is cut from.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/clone"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// MaxFileSize is the largest accepted input, 10 MiB.
const MaxFileSize = 10 << 20

// Formats are the decoder names accepted as input.
var Formats = []string{"png", "jpeg", "webp"}

var (
	// ErrUnsupportedFormat is returned for anything but png, jpeg or webp.
	ErrUnsupportedFormat = errors.New("source: unsupported format, use png, jpg or webp")
	// ErrTooLarge is returned for inputs over MaxFileSize.
	ErrTooLarge = errors.New("source: file too large, the limit is 10MB")
)

// Image is a decoded source with the name it was loaded under.
type Image struct {
	*image.RGBA
	Name   string
	Format string
}

// Width of the decoded image.
func (i *Image) Width() int { return i.Rect.Dx() }

// Height of the decoded image.
func (i *Image) Height() int { return i.Rect.Dy() }

// Open reads and decodes the file at path.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, filepath.Base(path))
}

// Decode reads at most MaxFileSize bytes from r and decodes them.
// The pixels are converted to RGBA so cells can be cut without
// converting colours per pixel.
func Decode(r io.Reader, name string) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrTooLarge
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, name, err)
	}
	if !supported(format) {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, name, format)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", name, err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = clone.AsRGBA(img)
	}
	log.Debugf("source: %s %s %dx%d", name, format, rgba.Rect.Dx(), rgba.Rect.Dy())
	return &Image{RGBA: rgba, Name: name, Format: format}, nil
}

func supported(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
