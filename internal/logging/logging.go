// Package logging builds the process logger.
//
// Log lines go to stderr, never stdout, because stdout carries the MCP
// protocol. When a file is configured the same lines are also written to a
// size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a logrus level name such as "debug" or "info".
	Level string

	// File, if set, receives a copy of every line and is rotated at
	// MaxSizeMB.
	File string

	// Output replaces stderr. Used by tests.
	Output io.Writer
}

// Rotation limits for the log file.
const (
	MaxSizeMB  = 100
	MaxAgeDays = 7
	MaxBackups = 3
)

// New returns a configured logger and a closer for the log file. The closer
// is a no-op when no file is configured.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetReportCaller(true)
	logger.SetFormatter(newFormatter(opts.File != ""))

	var closer io.Closer = nopCloser{}
	writers := []io.Writer{out}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    MaxSizeMB,
			MaxAge:     MaxAgeDays,
			MaxBackups: MaxBackups,
		}
		writers = append(writers, file)
		closer = file
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, closer, nil
}

func newFormatter(noColors bool) *formatter.Formatter {
	return &formatter.Formatter{
		NoColors:        noColors,
		TimestampFormat: "2006-01-02 15:04:05.000",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			if noColors {
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			}
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
		},
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
