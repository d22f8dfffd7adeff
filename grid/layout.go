package grid

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrBadGrid is returned for a grid with fewer than one row or column.
var ErrBadGrid = errors.New("grid: rows and cols must be at least 1")

// Rect is a cell rectangle in source pixel space.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Cel - one cell of the grid
type Cel struct {
	Index int
	Row   int
	Col   int
	Rect  Rect
}

// Layout maps cell indices onto a region.
type Layout struct {
	Region Region
	Rows   int
	Cols   int
}

// NewLayout checks the grid dimensions and returns the layout.
func NewLayout(r Region, rows, cols int) (Layout, error) {
	if rows < 1 || cols < 1 {
		return Layout{}, fmt.Errorf("%w: got %dx%d", ErrBadGrid, rows, cols)
	}
	return Layout{Region: r, Rows: rows, Cols: cols}, nil
}

// Count is the number of cells, rows*cols.
func (l Layout) Count() int {
	return l.Rows * l.Cols
}

// SliceSize is the size of every cell.
func (l Layout) SliceSize() (w, h float64) {
	return l.Region.Width / float64(l.Cols), l.Region.Height / float64(l.Rows)
}

// Position returns the row and column of index.
func (l Layout) Position(index int) (row, col int) {
	return index / l.Cols, index % l.Cols
}

// Index is the inverse of Position.
func (l Layout) Index(row, col int) int {
	return row*l.Cols + col
}

// Valid reports whether index names a cell of the layout.
func (l Layout) Valid(index int) bool {
	return index >= 0 && index < l.Count()
}

// Cel computes the cell for index from scratch.
func (l Layout) Cel(index int) Cel {
	row, col := l.Position(index)
	w, h := l.SliceSize()
	return Cel{
		Index: index,
		Row:   row,
		Col:   col,
		Rect: Rect{
			X:      l.Region.OffsetX + float64(col)*w,
			Y:      l.Region.OffsetY + float64(row)*h,
			Width:  w,
			Height: h,
		},
	}
}

// All returns every index in ascending order.
func (l Layout) All() []int {
	out := make([]int, l.Count())
	for i := range out {
		out[i] = i
	}
	return out
}

// Cels streams the cells for indices, in the given order. A nil or empty
// indices slice streams every cell. The channel is closed once all cells
// have been sent or ctx is done.
func (l Layout) Cels(ctx context.Context, indices []int) <-chan Cel {
	if len(indices) == 0 {
		indices = l.All()
	}
	out := make(chan Cel, 1)
	go func() {
		defer close(out)
		for _, i := range indices {
			select {
			case out <- l.Cel(i):
			case <-ctx.Done():
				log.Debug("Cels: context done, closing channel")
				return
			}
		}
	}()
	return out
}
