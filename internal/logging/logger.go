package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0664

// Builder assembles a zerolog.Logger from a destination and a level
type Builder struct {
	writer io.Writer
	path   string
	level  string
}

// Logger is a built logger plus the file it owns, if any
type Logger struct {
	zerolog.Logger
	file *os.File
}

func New() *Builder {
	return &Builder{}
}

// FromPath appends to the file at path
func (b *Builder) FromPath(path string) *Builder {
	b.path = path
	return b
}

// FromWriter writes to w; ignored when a path is set
func (b *Builder) FromWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

func (b *Builder) WithLevel(level string) *Builder {
	b.level = level
	return b
}

func (b *Builder) Make() (*Logger, error) {
	out := &Logger{}

	writer := b.writer
	if writer == nil {
		writer = os.Stdout
	}
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out.file = f
		writer = zerolog.SyncWriter(f)
	}

	level := zerolog.InfoLevel
	if b.level != "" {
		parsed, err := zerolog.ParseLevel(b.level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", b.level, err)
		}
		level = parsed
	}

	out.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return out, nil
}

// Close releases the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
