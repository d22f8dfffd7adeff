// Package archive collects named blobs and packs them into a zip file.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

// DefaultLevel is the deflate level used when none is set.
const DefaultLevel = flate.DefaultCompression

// chunk is the amount of entry data written between progress reports.
const chunk = 32 << 10

// ErrFinalization wraps every failure to produce the zip.
var ErrFinalization = errors.New("archive: finalization failed")

// ProgressFunc receives the packaging progress in percent, 0 to 100.
type ProgressFunc func(percent float64)

type entry struct {
	name string
	data []byte
}

// Builder accumulates entries until Finalize. Entries are compressed only
// when the archive is finalized. A Builder is not safe for concurrent use.
type Builder struct {
	level    int
	modified time.Time
	entries  []entry
	names    map[string]struct{}
	size     int64
}

// Option configures a Builder.
type Option func(*Builder)

// WithLevel sets the deflate level. flate.NoCompression stores entries as is.
func WithLevel(level int) Option {
	return func(b *Builder) {
		b.level = level
	}
}

// WithModified sets the modification time written for every entry.
func WithModified(t time.Time) Option {
	return func(b *Builder) {
		b.modified = t
	}
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		level:    DefaultLevel,
		modified: time.Now(),
		names:    make(map[string]struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Add queues data under name. Names must be unique within the archive; a
// repeated name is a bug in the caller and panics.
func (b *Builder) Add(name string, data []byte) {
	if _, dup := b.names[name]; dup {
		panic(fmt.Sprintf("archive: duplicate entry %q", name))
	}
	b.names[name] = struct{}{}
	b.entries = append(b.entries, entry{name: name, data: data})
	b.size += int64(len(data))
}

// Len is the number of queued entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Names lists the queued entries in insertion order.
func (b *Builder) Names() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.name
	}
	return out
}

// Reset drops every queued entry.
func (b *Builder) Reset() {
	b.entries = nil
	b.names = make(map[string]struct{})
	b.size = 0
}

// Finalize packs the queued entries and returns the zip bytes.
func (b *Builder) Finalize(ctx context.Context, progress ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.FinalizeTo(ctx, &buf, progress); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FinalizeTo streams the zip to w. progress, if not nil, is called with a
// non-decreasing percentage of entry bytes compressed so far and always
// ends with 100 on success.
func (b *Builder) FinalizeTo(ctx context.Context, w io.Writer, progress ProgressFunc) error {
	if progress == nil {
		progress = func(float64) {}
	}
	zw := zip.NewWriter(w)
	method := zip.Deflate
	if b.level == flate.NoCompression {
		method = zip.Store
	} else {
		level := b.level
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	var done int64
	report := func() {
		if b.size == 0 {
			return
		}
		progress(float64(done) * 100 / float64(b.size))
	}

	progress(0)
	for _, e := range b.entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrFinalization, err)
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   method,
			Modified: b.modified,
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFinalization, e.name, err)
		}
		for off := 0; off < len(e.data); off += chunk {
			end := off + chunk
			if end > len(e.data) {
				end = len(e.data)
			}
			if _, err := fw.Write(e.data[off:end]); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFinalization, e.name, err)
			}
			done += int64(end - off)
			report()
		}
		log.Debugf("archive: packed %s (%d bytes)", e.name, len(e.data))
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrFinalization, err)
	}
	progress(100)
	return nil
}
