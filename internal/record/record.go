package record

import (
	"strings"
	"time"
)

// Level is the closed severity enum carried by every record. The names match
// what bot producers emit.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// ParseLevel maps a level name (any case) to a Level. The second return is
// false for names outside the enum.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARNING", "WARN":
		return LevelWarning, true
	case "ERROR":
		return LevelError, true
	case "CRITICAL", "FATAL":
		return LevelCritical, true
	default:
		return "", false
	}
}

// Valid reports whether l is one of the enum values.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical:
		return true
	}
	return false
}

// Record is a single structured log record. Immutable once created; the
// history store assigns its sequence number at append time.
type Record struct {
	Time     time.Time `json:"timestamp"`
	Level    Level     `json:"level"`
	Logger   string    `json:"logger"`
	Message  string    `json:"message"`
	Module   string    `json:"module,omitempty"`
	Function string    `json:"function,omitempty"`
	Line     int       `json:"line,omitempty"`
	Path     string    `json:"path,omitempty"`
}

// Event is a typed dashboard notification distinct from log records. Events
// share the live fan-out path but are never retained in the history store.
type Event struct {
	Kind string                 `json:"kind"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event kinds emitted by the platform.
const (
	EventVerification = "verification"
	EventSystem       = "system"
	EventProtection   = "protection"
)
