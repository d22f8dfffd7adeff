// sheet renders the grid a slicing run would use over the source image,
// with the selected cells highlighted, and optionally previews it in the
// terminal.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	ansi "github.com/gookit/color"
	"github.com/joshdk/preview"
	"github.com/nfnt/resize"
	log "github.com/sirupsen/logrus"

	"github.com/submersibletoaster/gridslice"
	"github.com/submersibletoaster/gridslice/config"
	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/grid"
	"github.com/submersibletoaster/gridslice/source"
)

var rows = flag.Int("rows", 3, "Number of rows")
var cols = flag.Int("cols", 3, "Number of columns")
var crop = flag.String("crop", "original", "Crop mode: original or square")
var selection = flag.String("select", "", "Cells to highlight, e.g. 0,4,8")
var lineColor = flag.String("line", "#ffffff", "Grid line colour")
var noLabels = flag.Bool("nolabels", false, "Do not label cells")
var out = flag.String("o", "sheet.png", "Output PNG")
var show = flag.Bool("preview", false, "Preview the sheet in the terminal")
var thumb = flag.Uint("thumb", 640, "Longest side of the terminal preview")
var verbose = flag.Bool("v", false, "Verbose logging")

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] image\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(flag.Arg(0)); err != nil {
		ansi.Red.Println(err)
		os.Exit(1)
	}
}

func run(path string) error {
	src, err := source.Open(path)
	if err != nil {
		return err
	}

	s := gridslice.DefaultSettings()
	s.Rows, s.Cols = *rows, *cols
	if s.CropMode, err = grid.ParseCropMode(*crop); err != nil {
		return err
	}
	s.Format = encode.PNG
	sel, err := config.ParseSelection(*selection, s.Rows*s.Cols)
	if err != nil {
		return err
	}

	style := gridslice.DefaultOverlayStyle()
	style.Labels = !*noLabels
	if style.Line, err = config.ParseColor(*lineColor); err != nil {
		return err
	}

	sheet, err := gridslice.Overlay(src.RGBA, s, sel, style)
	if err != nil {
		return err
	}
	if err := writePNG(*out, sheet); err != nil {
		return err
	}
	ansi.Green.Printf("Wrote %s (%d cells, %d selected)\n", *out, s.Rows*s.Cols, len(sel))

	if *show {
		preview.Image(resize.Thumbnail(*thumb, *thumb, sheet, resize.Lanczos3))
	}
	return nil
}

func writePNG(path string, img image.Image) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := w.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	return png.Encode(w, img)
}
