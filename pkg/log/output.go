package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes entries to stderr, serialized by a mutex so
// concurrent components never interleave within a line.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns an Output writing to stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stderr}
}

// NewWriterOutput returns an Output writing to an arbitrary writer.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

// Write writes the formatted entry.
func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.w == nil {
		return ErrNoOutput
	}
	_, err := o.w.Write(formatted)
	return err
}

// Close detaches the writer. Further writes return ErrNoOutput.
func (o *ConsoleOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.w = nil
	return nil
}
