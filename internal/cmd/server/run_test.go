package serverrun

import "testing"

func TestGetenvDefault(t *testing.T) {
	orig := getenv
	defer func() { getenv = orig }()

	env := map[string]string{"TELEPANEL_LOG_LEVEL": "debug"}
	getenv = func(key string) string { return env[key] }

	if got := getenvDefault("TELEPANEL_LOG_LEVEL", "info"); got != "debug" {
		t.Fatalf("set key = %q, want debug", got)
	}
	if got := getenvDefault("TELEPANEL_LOG_FORMAT", "text"); got != "text" {
		t.Fatalf("unset key = %q, want default text", got)
	}
}
