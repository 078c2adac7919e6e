// Package log provides telepanel's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Entries flow through a Formatter
// (text or JSON) to one or more Outputs. Components receive an injected
// Logger tagged with Component so every line carries its origin.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("hub"))
//	l.Info("listener started", log.Str("addr", ":8080"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level + format),
// typically populated from TELEPANEL_LOG_LEVEL and TELEPANEL_LOG_FORMAT.
//
// # Interop
//
// RedirectStdLog routes standard library log output (used by Pebble) through
// a Logger so third-party lines share one pipeline.
package log
