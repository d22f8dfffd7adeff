package source

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(1, 1, color.NRGBA{200, 100, 50, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	img, err := Decode(bytes.NewReader(pngBytes(t, 30, 20)), "photo.png")
	require.NoError(t, err)
	assert.Equal(t, "photo.png", img.Name)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 30, img.Width())
	assert.Equal(t, 20, img.Height())
	assert.Equal(t, color.RGBA{200, 100, 50, 255}, img.RGBAAt(1, 1))
}

func TestDecodeRejectsGIF(t *testing.T) {
	var buf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&buf, pal, nil))

	_, err := Decode(&buf, "anim.gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeRejectsLargeInput(t *testing.T) {
	data := append(pngBytes(t, 2, 2), make([]byte, MaxFileSize)...)
	_, err := Decode(bytes.NewReader(data), "huge.png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 8, 8), 0o644))

	img, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "tile.png", img.Name)

	_, err = Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
