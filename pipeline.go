package gridslice

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/klauspost/compress/flate"
	log "github.com/sirupsen/logrus"

	"github.com/submersibletoaster/gridslice/archive"
	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/grid"
	"github.com/submersibletoaster/gridslice/persist"
)

// Job is the input of one run.
type Job struct {
	Source image.Image
	// Name is the original file name, used for naming only.
	Name     string
	Settings Settings
	// Selection lists the cells to export. Empty means every cell.
	Selection []int
}

// Result of a successful run.
type Result struct {
	Filename string
	Data     []byte
	// Entries in the order they were added.
	Entries []string
	// Skipped holds the cells that failed to encode.
	Skipped []int
	// Requested is the number of cells the run set out to export.
	Requested int
}

// Complete reports whether every requested cell made it into the archive.
func (r *Result) Complete() bool {
	return len(r.Skipped) == 0
}

// Pipeline runs jobs. The zero value is ready to use.
type Pipeline struct {
	// Encoder overrides the encoder built from the job settings.
	Encoder encode.Encoder
	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

// Process runs job with a zero Pipeline.
func Process(ctx context.Context, job Job, progress ProgressFunc) (*Result, error) {
	var p Pipeline
	return p.Run(ctx, job, progress)
}

// Run slices, encodes and archives job.
//
// Invalid settings, selections or sources are reported straight away.
// Any failure after that is logged and returned wrapped in
// ErrProcessingFailed; no partial archive is returned. A grid with cells
// under one pixel fails as a whole with ErrSurfaceUnavailable. ctx is only
// consulted between cells and while the archive is written.
func (p *Pipeline) Run(ctx context.Context, job Job, progress ProgressFunc) (*Result, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}
	logger := p.logger().WithFields(log.Fields{
		"name":   job.Name,
		"grid":   fmt.Sprintf("%dx%d", job.Settings.Rows, job.Settings.Cols),
		"format": job.Settings.Format,
		"crop":   job.Settings.CropMode,
	})

	res, err := p.run(ctx, job, logger, &monotonic{fn: progress})
	if err != nil {
		logger.WithError(err).Error("slice generation failed")
		return nil, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
	logger.WithFields(log.Fields{
		"entries": len(res.Entries),
		"skipped": len(res.Skipped),
		"bytes":   len(res.Data),
	}).Info("archive ready")
	return res, nil
}

// Download runs job and hands the archive to dst.
func (p *Pipeline) Download(ctx context.Context, job Job, dst persist.Persister, progress ProgressFunc) (*Result, error) {
	res, err := p.Run(ctx, job, progress)
	if err != nil {
		return nil, err
	}
	if err := dst.Persist(res.Data, res.Filename); err != nil {
		p.logger().WithError(err).WithField("file", res.Filename).Error("saving archive failed")
		return nil, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, job Job, logger log.FieldLogger, rep *monotonic) (*Result, error) {
	s := job.Settings
	b := job.Source.Bounds()
	region := grid.Resolve(b.Dx(), b.Dy(), s.CropMode)
	layout, err := grid.NewLayout(region, s.Rows, s.Cols)
	if err != nil {
		return nil, err
	}
	cells := job.cells(layout)

	surface, err := grid.NewSurface(layout.SliceSize())
	if err != nil {
		return nil, err
	}
	enc := p.Encoder
	if enc == nil {
		enc = s.encoder()
	}
	arc := archive.NewBuilder(archive.WithLevel(s.level()))
	res := &Result{Filename: ArchiveFilename(job.Name), Requested: len(cells)}

	rep.report(0)
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := 0
	for c := range layout.Cels(cctx, cells) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		surface.Clear()
		if err := surface.Extract(job.Source, c.Rect); err != nil {
			return nil, err
		}
		blob, err := enc.Encode(surface.Image(), s.Format)
		if err == nil && len(blob.Data) == 0 {
			err = fmt.Errorf("%w: no data", ErrEncodeFailed)
		}
		if err != nil {
			if !errors.Is(err, ErrEncodeFailed) {
				err = fmt.Errorf("%w: %v", ErrEncodeFailed, err)
			}
			if s.Strict {
				return nil, fmt.Errorf("cell %d: %w", c.Index, err)
			}
			logger.WithError(err).WithField("cell", c.Index).Warn("cell skipped")
			res.Skipped = append(res.Skipped, c.Index)
		} else {
			name := CellFilename(job.Name, c.Row, c.Col, s.Format)
			arc.Add(name, blob.Data)
			logger.Debugf("cell %d -> %s (%d bytes)", c.Index, name, len(blob.Data))
		}
		done++
		rep.report(int(math.Round(float64(done) / float64(len(cells)) * generateWeight)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.report(packStart)
	data, err := arc.Finalize(ctx, func(pct float64) {
		rep.report(packStart + int(math.Round(pct*packWeight)))
	})
	if err != nil {
		return nil, err
	}
	rep.report(100)

	res.Data = data
	res.Entries = arc.Names()
	return res, nil
}

func (p *Pipeline) logger() log.FieldLogger {
	if p.Logger == nil {
		return log.StandardLogger()
	}
	return p.Logger
}

func (s Settings) level() int {
	switch {
	case s.Store:
		return flate.NoCompression
	case s.Compression == 0:
		return archive.DefaultLevel
	}
	return s.Compression
}

func (j Job) validate() error {
	if j.Source == nil || j.Source.Bounds().Empty() {
		return ErrInvalidSource
	}
	if err := j.Settings.Validate(); err != nil {
		return err
	}
	count := j.Settings.Rows * j.Settings.Cols
	for _, i := range j.Selection {
		if i < 0 || i >= count {
			return fmt.Errorf("%w: cell %d outside 0..%d", ErrInvalidSelection, i, count-1)
		}
	}
	return nil
}

// cells is the selection without repeats, or every cell when it is empty.
func (j Job) cells(l grid.Layout) []int {
	if len(j.Selection) == 0 {
		return l.All()
	}
	seen := make(map[int]bool, len(j.Selection))
	out := make([]int, 0, len(j.Selection))
	for _, i := range j.Selection {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}
