// Package logging builds the zerolog loggers used across pagecraft.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0664

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Build collects logger options. Call Make to get the logger.
type Build struct {
	writer io.Writer
	path   string
	level  string
	format string
}

// New starts a logger build writing to stderr at info level.
func New() *Build {
	return &Build{writer: os.Stderr, level: "info", format: FormatConsole}
}

func (b *Build) ToWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// ToFile appends to the file at path instead of the writer.
func (b *Build) ToFile(path string) *Build {
	b.path = path
	return b
}

func (b *Build) Level(level string) *Build {
	if level != "" {
		b.level = level
	}
	return b
}

func (b *Build) Format(format string) *Build {
	if format != "" {
		b.format = format
	}
	return b
}

// Logs holds a built logger and the file it writes to, if any.
type Logs struct {
	Logger zerolog.Logger
	File   *os.File
}

// Close closes the log file.
func (l *Logs) Close() error {
	if l.File == nil {
		return nil
	}
	return l.File.Close()
}

// Make builds the logger.
func (b *Build) Make() (*Logs, error) {
	level, err := zerolog.ParseLevel(b.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", b.level, err)
	}

	logs := &Logs{}
	w := b.writer
	if b.path != "" {
		logs.File, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		w = zerolog.SyncWriter(logs.File)
	}

	switch b.format {
	case FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: b.path != ""}
	default:
		logs.Close()
		return nil, fmt.Errorf("invalid log format %q (want %s or %s)", b.format, FormatConsole, FormatJSON)
	}

	logs.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logs, nil
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
