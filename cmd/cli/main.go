package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	pb "github.com/cheggaaa/pb/v3"
	ansi "github.com/gookit/color"
	log "github.com/sirupsen/logrus"

	"github.com/submersibletoaster/gridslice"
	"github.com/submersibletoaster/gridslice/config"
	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/grid"
	"github.com/submersibletoaster/gridslice/persist"
	"github.com/submersibletoaster/gridslice/source"
)

var (
	preset     = flag.String("config", "", "YAML preset with grid settings. Flags given explicitly override it.")
	rows       = flag.Int("rows", 3, "Number of rows (1-20)")
	cols       = flag.Int("cols", 3, "Number of columns (1-20)")
	format     = flag.String("format", "png", "Output format: png, jpg or webp")
	crop       = flag.String("crop", "original", "Crop mode: original or square")
	selection  = flag.String("select", "", "Cells to export, zero based, e.g. 0,4,8 or 0-2. Empty exports every cell.")
	quality    = flag.Float64("quality", encode.DefaultQuality, "Quality for jpg output")
	background = flag.String("bg", "#000000", "Background colour transparent pixels are flattened onto for jpg output")
	strict     = flag.Bool("strict", false, "Fail when any cell cannot be encoded instead of leaving it out")
	level      = flag.Int("level", 0, "Deflate level 1-9 for the archive, 0 for the default")
	store      = flag.Bool("store", false, "Store archive entries without compression")
	outDir     = flag.String("o", ".", "Directory the archive is written to")
	verbose    = flag.Bool("v", false, "Verbose logging")
	logFile    = flag.String("log", "", "Also write logs to this file, rotated")
	noBar      = flag.Bool("q", false, "Do not show a progress bar")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] image\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(run())
}

func run() int {
	closeLog, err := config.SetupLogging(*verbose, *logFile)
	if err != nil {
		ansi.Red.Printf("logging: %v\n", err)
		return 1
	}
	defer closeLog()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}

	settings, sel, err := settingsFromFlags()
	if err != nil {
		ansi.Red.Println(err)
		return 2
	}

	src, err := source.Open(flag.Arg(0))
	if err != nil {
		ansi.Red.Println(err)
		return 1
	}
	log.Infof("Image: %s %dx%d", src.Name, src.Width(), src.Height())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var bar *pb.ProgressBar
	progress := func(int) {}
	if !*noBar {
		bar = pb.StartNew(100)
		progress = func(p int) { bar.SetCurrent(int64(p)) }
	}

	var p gridslice.Pipeline
	res, err := p.Download(ctx, gridslice.Job{
		Source:    src.RGBA,
		Name:      src.Name,
		Settings:  settings,
		Selection: sel,
	}, persist.Dir{Path: *outDir}, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		ansi.Red.Printf("Download failed, please retry: %v\n", err)
		return 1
	}

	ansi.Green.Printf("Wrote %s: %d of %d cells\n", res.Filename, len(res.Entries), res.Requested)
	if !res.Complete() {
		ansi.Yellow.Printf("Cells left out after encode errors: %v\n", res.Skipped)
	}
	return 0
}

// settingsFromFlags starts from the defaults, applies the preset and then
// every flag set on the command line.
func settingsFromFlags() (gridslice.Settings, []int, error) {
	s := gridslice.DefaultSettings()
	var sel []int
	if *preset != "" {
		p, err := config.Load(*preset)
		if err != nil {
			return s, nil, err
		}
		if err := p.Apply(&s); err != nil {
			return s, nil, err
		}
		sel = p.Select
	}

	var err error
	set := func(name string) bool {
		found := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		return found || *preset == ""
	}
	if set("rows") {
		s.Rows = *rows
	}
	if set("cols") {
		s.Cols = *cols
	}
	if set("format") {
		if s.Format, err = encode.ParseFormat(*format); err != nil {
			return s, nil, err
		}
	}
	if set("crop") {
		if s.CropMode, err = grid.ParseCropMode(*crop); err != nil {
			return s, nil, err
		}
	}
	if set("quality") {
		s.Quality = *quality
	}
	if set("bg") {
		if s.Background, err = config.ParseColor(*background); err != nil {
			return s, nil, err
		}
	}
	if set("strict") {
		s.Strict = *strict
	}
	if set("level") {
		s.Compression = *level
	}
	if set("store") {
		s.Store = *store
	}
	if set("select") {
		if sel, err = config.ParseSelection(*selection, s.Rows*s.Cols); err != nil {
			return s, nil, err
		}
	}

	if s.Rows > gridslice.MaxGridSize || s.Cols > gridslice.MaxGridSize {
		return s, nil, fmt.Errorf("grid %dx%d: rows and cols are limited to %d", s.Rows, s.Cols, gridslice.MaxGridSize)
	}
	return s, sel, s.Validate()
}
