package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger wraps zerolog to provide a simplified API for the application.
type Logger struct {
	base   zerolog.Logger
	output io.Writer
	level  zerolog.Level

	// chain is the full writer chain of a teed logger: the level-filtered
	// console plus every sink attached so far. Nil until the first Tee.
	chain zerolog.LevelWriter
}

// New creates a configured Logger instance based on Options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{base: logger, output: output, level: level}, nil
}

// FileSink is a debug-level log file owned by a single wrapper. Every wrapper
// in a project writes to its own `<name>.log` alongside the console logger.
type FileSink struct {
	file *os.File
}

// NewFileSink opens (or creates) the log file at path in append mode.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f}, nil
}

// Write implements io.Writer. A closed or nil sink discards the entry.
func (s *FileSink) Write(p []byte) (int, error) {
	if s == nil || s.file == nil {
		return len(p), nil
	}
	return s.file.Write(p)
}

// Path returns the sink's file path.
func (s *FileSink) Path() string {
	if s == nil || s.file == nil {
		return ""
	}
	return s.file.Name()
}

// Close releases the underlying file.
func (s *FileSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Tee returns a derived logger that writes every entry to the sink at debug
// level while the console output keeps its configured level. Sinks stack:
// teeing an already-teed logger adds the new sink on top of the existing
// chain, and attached fields carry over. A nil sink returns the receiver
// unchanged.
func (l *Logger) Tee(sink *FileSink) *Logger {
	if l == nil {
		return nil
	}
	if sink == nil || sink.file == nil {
		return l
	}

	base := l.chain
	if base == nil {
		base = &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: l.output},
			Level:  l.level,
		}
	}
	chain := zerolog.MultiLevelWriter(base, zerolog.LevelWriterAdapter{Writer: sink.file})

	logger := l.base.Output(chain).Level(zerolog.DebugLevel)
	return &Logger{base: logger, output: l.output, level: l.level, chain: chain}
}

// WithFields returns a derived logger that always writes the supplied fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}

	builder := l.base.With()
	for key, value := range fields {
		builder = builder.Interface(key, value)
	}

	derived := Logger{base: builder.Logger(), output: l.output, level: l.level, chain: l.chain}
	return &derived
}

// Info writes an informational log entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Debug writes a debug-level log entry if enabled.
func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

// Warn writes a warning level log entry.
func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.base.Warn().Msg(msg)
}

// Error writes an error log entry including the supplied error context.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
