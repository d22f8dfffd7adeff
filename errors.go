package gridslice

import (
	"errors"

	"github.com/submersibletoaster/gridslice/archive"
	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/grid"
)

var (
	// ErrProcessingFailed wraps every fatal failure of a run.
	ErrProcessingFailed = errors.New("gridslice: processing failed")

	// ErrInvalidSettings is returned before a run for unusable settings.
	ErrInvalidSettings = errors.New("gridslice: invalid settings")
	// ErrInvalidSelection is returned for cell indices outside the grid.
	ErrInvalidSelection = errors.New("gridslice: invalid selection")
	// ErrInvalidSource is returned for a missing or empty source image.
	ErrInvalidSource = errors.New("gridslice: invalid source image")

	// ErrSurfaceUnavailable - no scratch surface could be allocated. Fatal.
	ErrSurfaceUnavailable = grid.ErrSurfaceUnavailable
	// ErrEncodeFailed - a cell produced no data. Fatal only in strict mode.
	ErrEncodeFailed = encode.ErrEncodeFailed
	// ErrArchiveFinalization - the zip could not be written. Fatal.
	ErrArchiveFinalization = archive.ErrFinalization
)
