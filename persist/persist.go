// Package persist hands finished archives to their destination.
package persist

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Persister saves data under filename.
type Persister interface {
	Persist(data []byte, filename string) error
}

// Func adapts a function to a Persister.
type Func func(data []byte, filename string) error

// Persist implements Persister.
func (f Func) Persist(data []byte, filename string) error {
	return f(data, filename)
}

// Dir writes files into a directory, creating it if needed. Files are
// written to a temporary name first so a failed write never leaves a
// truncated archive behind.
type Dir struct {
	Path string
}

// Persist implements Persister.
func (d Dir) Persist(data []byte, filename string) (err error) {
	if filename == "" || filename == "." || filename == ".." || filepath.Base(filename) != filename {
		return fmt.Errorf("persist: invalid filename %q", filename)
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	tmp, err := os.CreateTemp(d.Path, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: write %s: %w", filename, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("persist: close %s: %w", filename, err)
	}
	dst := filepath.Join(d.Path, filename)
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	log.Debugf("persist: wrote %s (%d bytes)", dst, len(data))
	return nil
}
