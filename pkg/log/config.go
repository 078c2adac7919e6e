package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
)

// Config declares logger behavior for ApplyConfig.
type Config struct {
	// Level is the minimum level name: debug|info|warn|error|fatal.
	Level string
	// Format selects the formatter: text|json.
	Format string
}

// ApplyConfig builds a Logger from a declarative Config. Empty fields fall
// back to info level and text format.
func ApplyConfig(cfg *Config) (Logger, error) {
	level := InfoLevel
	if cfg.Level != "" {
		parsed, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(NewConsoleOutput())), nil
}

// RedirectStdLog routes standard library log output through the provided
// Logger at InfoLevel. Pebble and net/http write through here.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdBridge{l})
}

type stdBridge struct{ l Logger }

func (b stdBridge) Write(p []byte) (int, error) {
	b.l.Info(strings.TrimRight(string(p), "\n"), Component("stdlog"))
	return len(p), nil
}

func defaultExit(code int) { os.Exit(code) }
