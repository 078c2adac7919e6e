package log

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Entry represents a single log entry handed to formatters and outputs.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
}

// Logger defines the core logging interface for telepanel components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a derived logger carrying the extra fields on every entry.
	With(fields ...Field) Logger

	// SetLevel sets the minimum log level.
	SetLevel(level Level)

	// GetLevel returns the current minimum log level.
	GetLevel() Level
}

// Formatter renders an entry into bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output receives formatted entries.
type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// LoggerOption configures a logger under construction.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	mu        sync.Mutex
	level     Level
	fields    []Field
	formatter Formatter
	outputs   []Output
	exit      func(int)
}

// NewLogger creates a new logger with the given options. Without options it
// logs at InfoLevel as JSON to the console.
func NewLogger(options ...LoggerOption) Logger {
	l := &BaseLogger{
		level:     InfoLevel,
		formatter: &JSONFormatter{},
		exit:      defaultExit,
	}
	for _, opt := range options {
		opt(l)
	}
	if len(l.outputs) == 0 {
		l.outputs = append(l.outputs, NewConsoleOutput())
	}
	return l
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) { l.level = level }
}

// WithFormatter sets the log formatter.
func WithFormatter(f Formatter) LoggerOption {
	return func(l *BaseLogger) { l.formatter = f }
}

// WithOutput adds an output to the logger.
func WithOutput(o Output) LoggerOption {
	return func(l *BaseLogger) { l.outputs = append(l.outputs, o) }
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs the entry and terminates the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	l.exit(1)
}

// With returns a derived logger carrying the extra fields.
func (l *BaseLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &BaseLogger{
		level:     l.level,
		fields:    append(append([]Field(nil), l.fields...), fields...),
		formatter: l.formatter,
		outputs:   l.outputs,
		exit:      l.exit,
	}
	return child
}

// SetLevel sets the minimum log level.
func (l *BaseLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum log level.
func (l *BaseLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	l.mu.Lock()
	if level < l.level {
		l.mu.Unlock()
		return
	}
	merged := make(Fields, len(l.fields)+len(fields))
	for _, f := range l.fields {
		merged[f.Key] = f.Value
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    merged,
		Timestamp: time.Now(),
	}
	formatter := l.formatter
	outputs := l.outputs
	l.mu.Unlock()

	formatted, err := formatter.Format(entry)
	if err != nil {
		return
	}
	for _, out := range outputs {
		_ = out.Write(entry, formatted)
	}
}

// ErrNoOutput is returned by outputs that have been closed.
var ErrNoOutput = errors.New("log: output closed")
