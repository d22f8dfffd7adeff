// Package grid resolves the part of a source image that gets tiled and
// cuts it into rows x cols cells.
//
// Coordinates are float64 because a grid rarely divides an image evenly:
// a 1000px wide image split into 3 columns has cells 333.33px wide. Every
// cell rectangle is derived from its own index, never by stepping a cursor,
// so rounding error cannot accumulate across a row.
package grid

import (
	"fmt"
	"math"
	"strings"
)

// CropMode selects how the effective region is taken from the source.
type CropMode string

const (
	// Original tiles the whole source.
	Original CropMode = "original"
	// Square tiles the largest centred square of the source.
	Square CropMode = "square"
)

// ParseCropMode - case insensitive lookup of a crop mode name
func ParseCropMode(s string) (CropMode, error) {
	switch m := CropMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Original, Square:
		return m, nil
	}
	return "", fmt.Errorf("unknown crop mode %q", s)
}

// Valid reports whether m is one of the known crop modes.
func (m CropMode) Valid() bool {
	return m == Original || m == Square
}

// Region is the rectangle of the source that will be tiled.
type Region struct {
	Width   float64
	Height  float64
	OffsetX float64
	OffsetY float64
}

// Resolve computes the effective region of a width x height source.
// An unknown mode is treated as Original; callers validate modes first.
func Resolve(width, height int, mode CropMode) Region {
	w, h := float64(width), float64(height)
	if mode != Square {
		return Region{Width: w, Height: h}
	}
	side := math.Min(w, h)
	return Region{
		Width:   side,
		Height:  side,
		OffsetX: (w - side) / 2,
		OffsetY: (h - side) / 2,
	}
}

// Contains reports whether r lies inside a width x height source.
func (r Region) Contains(width, height int) bool {
	return r.OffsetX >= 0 && r.OffsetY >= 0 &&
		r.OffsetX+r.Width <= float64(width) &&
		r.OffsetY+r.Height <= float64(height)
}
