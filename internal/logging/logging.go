// Package logging configures the process logger. The terminal UI owns
// stdout, so logs go to a file unless stderr is requested.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Stderr as the log path writes to standard error.
const Stderr = "-"

// Options configures New.
type Options struct {
	Level string
	// Path is the log file, or Stderr. Empty discards output.
	Path string
}

// New returns a logger and a close function for its output.
func New(opts Options) (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	closer := func() error { return nil }
	switch opts.Path {
	case "":
		logger.SetOutput(io.Discard)
	case Stderr:
		logger.SetOutput(os.Stderr)
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f.Close
	}

	level, err := ParseLevel(opts.Level)
	logger.SetLevel(level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
	}

	return logger, closer, nil
}

// ParseLevel maps a config level to logrus. Empty means info; anything
// unrecognized returns info with an error.
func ParseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, err
	}
	return level, nil
}
