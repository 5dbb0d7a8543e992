package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Output formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// DefaultFileName is the log file created by NewLogger inside its directory.
const DefaultFileName = "filepipe.log"

// Options configures a Logger.
type Options struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive). Unknown
	// values fall back to INFO.
	Level string
	// Format is "json" or "text". It only affects stderr output; files are
	// always JSON.
	Format string
	// File is the log file path. Empty means stderr.
	File string
	// Rotation controls size-based rotation of File.
	Rotation RotationConfig
}

// Logger provides structured logging with context propagation.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	writer *RotatingWriter
	attrs  []slog.Attr
}

// New creates a Logger from opts.
func New(opts Options) (*Logger, error) {
	level := parseLevel(opts.Level)

	if opts.File == "" {
		return &Logger{logger: slog.New(consoleHandler(os.Stderr, opts.Format, level))}, nil
	}

	rw, err := NewRotatingWriter(opts.File, opts.Rotation)
	if err != nil {
		return nil, err
	}
	handler := slog.NewJSONHandler(rw, &slog.HandlerOptions{Level: level})
	return &Logger{logger: slog.New(handler), writer: rw}, nil
}

// NewLogger creates a Logger that writes JSON to {dir}/filepipe.log using the
// default rotation settings. If dir is empty, logs go to stderr as JSON.
func NewLogger(dir string, level string) (*Logger, error) {
	if dir == "" {
		return New(Options{Level: level, Format: FormatJSON})
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return New(Options{
		Level:    level,
		File:     filepath.Join(dir, DefaultFileName),
		Rotation: DefaultRotationConfig(),
	})
}

// consoleHandler picks the stderr handler for the requested format.
func consoleHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), FormatText) {
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(level),
			ReportTimestamp: true,
			Formatter:       charmlog.TextFormatter,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithChannel returns a child Logger tagged with the channel name.
func (l *Logger) WithChannel(name string) *Logger {
	return l.withAttr(slog.String("channel", name))
}

// WithConsumer returns a child Logger tagged with the consumer ID.
func (l *Logger) WithConsumer(id string) *Logger {
	return l.withAttr(slog.String("consumer_id", id))
}

// WithRouter returns a child Logger tagged with the router ID.
func (l *Logger) WithRouter(id string) *Logger {
	return l.withAttr(slog.String("router_id", id))
}

// With returns a new Logger with arbitrary key-value attributes.
// Keys and values are provided as alternating arguments; non-string keys
// are skipped.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return &Logger{logger: l.logger, writer: l.writer, attrs: newAttrs}
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr
	return &Logger{logger: l.logger, writer: l.writer, attrs: newAttrs}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level, msg, allArgs...)
}

// Close flushes and closes the log file. It is a no-op for stderr loggers.
// Child loggers share the writer, so only the root logger should be closed.
func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Close()
}

// NopLogger returns a Logger that discards all log output.
// Useful for testing or when logging is disabled.
func NopLogger() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// ParseLevel normalizes a level string to one of the Level constants.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
