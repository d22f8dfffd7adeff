package gridslice

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/persist"
)

func pattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), uint8(x / 256 * 40), 255})
		}
	}
	return img
}

func unzip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = b
	}
	return out
}

func quietPipeline() (*Pipeline, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return &Pipeline{Logger: logger}, hook
}

func assertCellMatches(t *testing.T, src *image.RGBA, data []byte, at image.Point, size image.Point) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, size, img.Bounds().Size())
	for _, p := range []image.Point{{0, 0}, {size.X - 1, 0}, {0, size.Y - 1}, {size.X / 2, size.Y / 2}, {size.X - 1, size.Y - 1}} {
		want := src.RGBAAt(at.X+p.X, at.Y+p.Y)
		assert.Equal(t, color.RGBAModel.Convert(want), color.RGBAModel.Convert(img.At(p.X, p.Y)), "pixel %v", p)
	}
}

func TestRunFullGrid(t *testing.T) {
	src := pattern(900, 600)
	p, _ := quietPipeline()
	res, err := p.Run(context.Background(), Job{Source: src, Name: "city.png", Settings: DefaultSettings()}, nil)
	require.NoError(t, err)

	assert.Equal(t, "city_grid.zip", res.Filename)
	assert.Equal(t, 9, res.Requested)
	assert.True(t, res.Complete())
	assert.Len(t, res.Entries, 9)

	files := unzip(t, res.Data)
	require.Len(t, files, 9)
	var names []string
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"city_1_1.png", "city_1_2.png", "city_1_3.png",
		"city_2_1.png", "city_2_2.png", "city_2_3.png",
		"city_3_1.png", "city_3_2.png", "city_3_3.png",
	}, names)

	assertCellMatches(t, src, files["city_1_1.png"], image.Pt(0, 0), image.Pt(300, 200))
	assertCellMatches(t, src, files["city_3_3.png"], image.Pt(600, 400), image.Pt(300, 200))
}

func TestRunSelection(t *testing.T) {
	p, _ := quietPipeline()
	res, err := p.Run(context.Background(), Job{
		Source:    pattern(90, 60),
		Name:      "pic.png",
		Settings:  DefaultSettings(),
		Selection: []int{8, 0, 4, 4},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, []string{"pic_3_3.png", "pic_1_1.png", "pic_2_2.png"}, res.Entries)
	assert.Len(t, unzip(t, res.Data), 3)
}

func TestRunSquareCrop(t *testing.T) {
	src := pattern(800, 600)
	s := DefaultSettings()
	s.Rows, s.Cols, s.CropMode = 2, 2, Square
	p, _ := quietPipeline()
	res, err := p.Run(context.Background(), Job{Source: src, Name: "wide.png", Settings: s}, nil)
	require.NoError(t, err)

	files := unzip(t, res.Data)
	assertCellMatches(t, src, files["wide_1_1.png"], image.Pt(100, 0), image.Pt(300, 300))
	assertCellMatches(t, src, files["wide_2_2.png"], image.Pt(400, 300), image.Pt(300, 300))
}

func TestRunProgress(t *testing.T) {
	var seen []int
	p, _ := quietPipeline()
	s := DefaultSettings()
	s.Rows, s.Cols = 4, 5
	_, err := p.Run(context.Background(), Job{Source: pattern(200, 100), Name: "p.png", Settings: s},
		func(pct int) { seen = append(seen, pct) })
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "progress went backwards: %v", seen)
	}
	sixty := -1
	for i, v := range seen {
		if v == 60 {
			sixty = i
			break
		}
	}
	require.NotEqual(t, -1, sixty, "60 checkpoint missing: %v", seen)
	assert.Equal(t, 50, seen[sixty-1], "generation finishes at 50")
	for _, v := range seen[:sixty] {
		assert.LessOrEqual(t, v, 50)
	}
}

func TestRunProgressPerCell(t *testing.T) {
	var seen []int
	p, _ := quietPipeline()
	s := DefaultSettings()
	s.Rows, s.Cols = 1, 4
	_, err := p.Run(context.Background(), Job{Source: pattern(40, 10), Name: "p.png", Settings: s},
		func(pct int) { seen = append(seen, pct) })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 13, 25, 38, 50, 60}, seen[:6])
}

// failingEncoder fails on the calls listed in fail, counting from zero.
type failingEncoder struct {
	next  encode.Encoder
	fail  map[int]bool
	calls int
	empty bool
}

func (f *failingEncoder) Encode(img image.Image, format encode.Format) (encode.Blob, error) {
	n := f.calls
	f.calls++
	if f.fail[n] {
		if f.empty {
			return encode.Blob{MIME: format.MIME()}, nil
		}
		return encode.Blob{}, errors.New("platform returned no blob")
	}
	return f.next.Encode(img, format)
}

func TestRunSkipsCellThatFailsToEncode(t *testing.T) {
	p, hook := quietPipeline()
	p.Encoder = &failingEncoder{next: encode.New(encode.Options{}), fail: map[int]bool{4: true}}

	res, err := p.Run(context.Background(), Job{Source: pattern(90, 90), Name: "a.png", Settings: DefaultSettings()}, nil)
	require.NoError(t, err)

	assert.False(t, res.Complete())
	assert.Equal(t, []int{4}, res.Skipped)
	assert.Len(t, unzip(t, res.Data), 8)
	assert.NotContains(t, res.Entries, "a_2_2.png")

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel && e.Data["cell"] == 4 {
			warned = true
		}
	}
	assert.True(t, warned, "skipped cell is logged")
}

func TestRunSkipsEmptyBlob(t *testing.T) {
	p, _ := quietPipeline()
	p.Encoder = &failingEncoder{next: encode.New(encode.Options{}), fail: map[int]bool{0: true}, empty: true}

	res, err := p.Run(context.Background(), Job{Source: pattern(30, 30), Name: "a.png", Settings: DefaultSettings()}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.Skipped)
	assert.Len(t, res.Entries, 8)
}

func TestRunStrictFailsOnEncodeError(t *testing.T) {
	p, hook := quietPipeline()
	p.Encoder = &failingEncoder{next: encode.New(encode.Options{}), fail: map[int]bool{2: true}}
	s := DefaultSettings()
	s.Strict = true

	res, err := p.Run(context.Background(), Job{Source: pattern(30, 30), Name: "a.png", Settings: s}, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.ErrorIs(t, err, ErrEncodeFailed)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
}

func TestRunSurfaceUnavailable(t *testing.T) {
	p, hook := quietPipeline()
	s := DefaultSettings()
	s.Cols = 20

	var seen []int
	_, err := p.Run(context.Background(), Job{Source: pattern(10, 10), Name: "tiny.png", Settings: s},
		func(pct int) { seen = append(seen, pct) })
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)
	assert.Empty(t, seen)
	require.NotNil(t, hook.LastEntry())
	assert.ErrorIs(t, hook.LastEntry().Data[log.ErrorKey].(error), ErrSurfaceUnavailable)
}

func TestRunRejectsBadInput(t *testing.T) {
	p, _ := quietPipeline()
	ctx := context.Background()

	_, err := p.Run(ctx, Job{Source: pattern(30, 30), Settings: DefaultSettings(), Selection: []int{9}}, nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.NotErrorIs(t, err, ErrProcessingFailed)

	_, err = p.Run(ctx, Job{Source: pattern(30, 30), Settings: DefaultSettings(), Selection: []int{-1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = p.Run(ctx, Job{Settings: DefaultSettings()}, nil)
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = p.Run(ctx, Job{Source: pattern(30, 30), Settings: Settings{Rows: 1, Cols: 1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestRunCancelled(t *testing.T) {
	p, _ := quietPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, Job{Source: pattern(30, 30), Name: "a.png", Settings: DefaultSettings()}, nil)
	assert.ErrorIs(t, err, ErrProcessingFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFormats(t *testing.T) {
	for _, f := range []Format{JPG, WEBP} {
		s := DefaultSettings()
		s.Format = f
		s.Rows, s.Cols = 2, 2
		p, _ := quietPipeline()
		res, err := p.Run(context.Background(), Job{Source: pattern(40, 40), Name: "x.png", Settings: s}, nil)
		require.NoError(t, err, f)
		assert.Contains(t, res.Entries, "x_2_1."+f.Ext())
	}
}

func TestRunStoreCompression(t *testing.T) {
	s := DefaultSettings()
	s.Store = true
	p, _ := quietPipeline()
	res, err := p.Run(context.Background(), Job{Source: pattern(30, 30), Name: "s.png", Settings: s}, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method)
	}
}

func TestDownload(t *testing.T) {
	p, _ := quietPipeline()
	var saved string
	var size int
	dst := persist.Func(func(data []byte, filename string) error {
		saved, size = filename, len(data)
		return nil
	})
	res, err := p.Download(context.Background(), Job{Source: pattern(30, 30), Name: "dl.jpg", Settings: DefaultSettings()}, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, "dl_grid.zip", saved)
	assert.Equal(t, len(res.Data), size)

	fail := persist.Func(func([]byte, string) error { return errors.New("read-only") })
	_, err = p.Download(context.Background(), Job{Source: pattern(30, 30), Name: "dl.jpg", Settings: DefaultSettings()}, fail, nil)
	assert.ErrorIs(t, err, ErrProcessingFailed)
}

func TestProcess(t *testing.T) {
	log.SetOutput(io.Discard)
	res, err := Process(context.Background(), Job{Source: pattern(20, 20), Name: "z.png", Settings: DefaultSettings()}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Entries, 9)
}
