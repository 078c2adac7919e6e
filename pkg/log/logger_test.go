package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(
		WithLevel(WarnLevel),
		WithFormatter(&TextFormatter{DisableTimestamp: true}),
		WithOutput(NewWriterOutput(&buf)),
	)
	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("below-level entries leaked: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn entry missing: %q", out)
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(
		WithFormatter(&JSONFormatter{}),
		WithOutput(NewWriterOutput(&buf)),
	)
	child := base.With(Component("hub"), Str("conn", "abc"))
	child.Info("registered", Int("queue", 256))

	var obj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("unmarshal: %v (%q)", err, buf.String())
	}
	if obj["component"] != "hub" || obj["conn"] != "abc" {
		t.Fatalf("derived fields missing: %v", obj)
	}
	if obj["queue"] != float64(256) {
		t.Fatalf("call-site field missing: %v", obj)
	}
	if obj["msg"] != "registered" || obj["level"] != "INFO" {
		t.Fatalf("entry envelope wrong: %v", obj)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"Warning": WarnLevel,
		"error":   ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestTextFormatterStableFieldOrder(t *testing.T) {
	var a, b bytes.Buffer
	f := &TextFormatter{DisableTimestamp: true}
	la := NewLogger(WithFormatter(f), WithOutput(NewWriterOutput(&a)))
	lb := NewLogger(WithFormatter(f), WithOutput(NewWriterOutput(&b)))
	la.Info("x", Str("b", "2"), Str("a", "1"))
	lb.Info("x", Str("a", "1"), Str("b", "2"))
	if a.String() != b.String() {
		t.Fatalf("field order not stable: %q vs %q", a.String(), b.String())
	}
}
