package config

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the logrus standard logger. Verbose switches
// on debug output. A non-empty file also receives every record as JSON,
// rotated by lumberjack. The returned func closes the file.
func SetupLogging(verbose bool, file string) (func(), error) {
	if verbose {
		log.SetLevel(log.DebugLevel)
		log.Debug("Setting verbose logging")
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if file == "" {
		log.SetOutput(os.Stderr)
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		LocalTime:  true,
	}
	log.SetOutput(io.Discard)
	log.AddHook(&writerHook{w: os.Stderr, f: &log.TextFormatter{}})
	log.AddHook(&writerHook{w: lj, f: &log.JSONFormatter{}})
	return func() {
		if err := lj.Close(); err != nil {
			log.WithError(err).Error("Failed to close log file")
		}
	}, nil
}

// writerHook writes every record to w in its own format.
type writerHook struct {
	w io.Writer
	f log.Formatter
}

func (h *writerHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *writerHook) Fire(e *log.Entry) error {
	b, err := h.f.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}
