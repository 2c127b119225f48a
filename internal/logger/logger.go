// Package logger provides a simple logging interface for localizer components.
// Components receive a Logger value explicitly; nothing in the core packages
// reaches for a process-wide logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/bldm-localizer/internal/util"
	"github.com/rs/zerolog"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// zeroLogger adapts a zerolog.Logger to the Logger interface.
type zeroLogger struct {
	zl zerolog.Logger
}

// New creates a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level zerolog.Level) Logger {
	return &zeroLogger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewConsole creates a Logger with human-readable output, for --verbose runs.
func NewConsole(w io.Writer, level zerolog.Level) Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return &zeroLogger{zl: zerolog.New(cw).Level(level).With().Timestamp().Logger()}
}

func (l *zeroLogger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *zeroLogger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *zeroLogger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *zeroLogger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// FileLogger writes one log file per run and must be closed at process end.
type FileLogger struct {
	Logger
	Path string
	file *os.File
}

// OpenFile creates dir if needed and opens <dir>/<label>_<YYYYMMDD_HHMMSS>.log.
// The label is sanitized for use in a file name; an empty label falls back to
// "localizer". When console is non-nil, entries are mirrored there too.
func OpenFile(dir, label string, level zerolog.Level, now time.Time, console io.Writer) (*FileLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	label = util.SanitizeFilename(label)
	if label == "" {
		label = "localizer"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", label, now.Format("20060102_150405")))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var w io.Writer = file
	if console != nil {
		w = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen})
	}

	return &FileLogger{
		Logger: New(w, level),
		Path:   path,
		file:   file,
	}, nil
}

// Close flushes and closes the underlying file. Safe to call more than once.
func (f *FileLogger) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// ParseLevel converts a config level name ("debug", "info", ...) to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
}

// SessionStart records who ran the tool, where, and when.
func SessionStart(l Logger, now time.Time) {
	userName := "unknown"
	if u, err := user.Current(); err == nil {
		userName = u.Username
	}
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "unknown"
	}
	l.Info("Session started - User: %s | Host: %s | Time: %s", userName, hostName, now.Format("2006-01-02 15:04:05"))
}

// Operation logs the start of a named operation and returns a function that
// logs its end with the given status.
func Operation(l Logger, name string) func(status string) {
	start := time.Now()
	l.Info("%s Starting %s %s", banner, name, banner)
	return func(status string) {
		l.Info("%s %s %s (%s) %s", banner, name, status, time.Since(start).Round(time.Millisecond), banner)
	}
}

const banner = "===================="

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
type BufferLogger struct {
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "debug", Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "info", Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "warn", Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "error", Message: fmt.Sprintf(format, args...)})
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains returns true if any message at the given level contains substr.
func (l *BufferLogger) Contains(level, substr string) bool {
	for _, m := range l.Messages {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}
