// Package config loads grid presets and parses the CLI's textual options.
//
// A preset is a small YAML file:
//
//	rows: 4
//	cols: 4
//	format: jpg
//	crop: square
//	quality: 0.8
//	background: "#ffffff"
//	select: [0, 5, 10, 15]
//
// Fields left out keep the gridslice defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/submersibletoaster/gridslice"
	"github.com/submersibletoaster/gridslice/encode"
	"github.com/submersibletoaster/gridslice/grid"
)

// ErrBadPreset wraps every problem found in a preset.
var ErrBadPreset = errors.New("config: bad preset")

// Preset mirrors the YAML file. Pointers tell unset fields apart.
type Preset struct {
	Rows        *int     `yaml:"rows"`
	Cols        *int     `yaml:"cols"`
	Format      string   `yaml:"format"`
	Crop        string   `yaml:"crop"`
	Quality     *float64 `yaml:"quality"`
	Background  string   `yaml:"background"`
	Strict      *bool    `yaml:"strict"`
	Compression *int     `yaml:"compression"`
	Store       *bool    `yaml:"store"`
	Select      []int    `yaml:"select"`
}

// Load reads the preset at path.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a preset, rejecting unknown keys.
func Parse(data []byte) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrBadPreset, err)
	}
	return &p, nil
}

// Apply overlays the preset onto s.
func (p *Preset) Apply(s *gridslice.Settings) error {
	if p.Rows != nil {
		s.Rows = *p.Rows
	}
	if p.Cols != nil {
		s.Cols = *p.Cols
	}
	if p.Format != "" {
		f, err := encode.ParseFormat(p.Format)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadPreset, err)
		}
		s.Format = f
	}
	if p.Crop != "" {
		m, err := grid.ParseCropMode(p.Crop)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadPreset, err)
		}
		s.CropMode = m
	}
	if p.Quality != nil {
		s.Quality = *p.Quality
	}
	if p.Background != "" {
		c, err := ParseColor(p.Background)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadPreset, err)
		}
		s.Background = c
	}
	if p.Strict != nil {
		s.Strict = *p.Strict
	}
	if p.Compression != nil {
		s.Compression = *p.Compression
	}
	if p.Store != nil {
		s.Store = *p.Store
	}
	return nil
}

// ParseColor reads a "#rrggbb" hex colour.
func ParseColor(s string) (color.Color, error) {
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("colour %q: %v", s, err)
	}
	return c, nil
}

// ParseSelection reads a list of cell indices such as "0,4,8" or "0-2,6"
// for a grid of cells cells. Indices are zero based and must be below
// cells. The result is sorted and free of repeats; an empty string selects
// nothing, which means every cell.
func ParseSelection(s string, cells int) ([]int, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("selection %q: %v", part, err)
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("selection %q: %v", part, err)
		}
		if a < 0 || b < a {
			return nil, fmt.Errorf("selection %q: bad range", part)
		}
		if b >= cells {
			return nil, fmt.Errorf("selection %q: grid has %d cells", part, cells)
		}
		for i := a; i <= b; i++ {
			seen[i] = true
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}
