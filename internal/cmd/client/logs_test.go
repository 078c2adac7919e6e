package client

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIngestPrintsStatus(t *testing.T) {
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/logs/ingest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.String()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	cmd := newLogsIngestCommand(func() string { return ts.URL })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--level", "ERROR", "--logger", "bot", "--message", "boom"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "status:") {
		t.Fatalf("expected status in output, got: %s", out.String())
	}
	if !strings.Contains(gotBody, `"message":"boom"`) || !strings.Contains(gotBody, `"level":"ERROR"`) {
		t.Fatalf("unexpected request body: %s", gotBody)
	}
}

func TestFetchOutputsRecordsAndForwardsFilters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("level"); got != "ERROR" {
			t.Errorf("level query = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit query = %q", got)
		}
		fmt.Fprint(w, `{"logs":[{"level":"ERROR","message":"boom"}],"count":1}`)
	}))
	defer ts.Close()

	cmd := newLogsFetchCommand(func() string { return ts.URL })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--level", "ERROR", "--limit", "5"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"message":"boom"`) {
		t.Fatalf("expected record in output, got: %s", out.String())
	}
}

func TestTailPrintsFramesAndSkipsHeartbeats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: log\ndata: {\"type\":\"log\",\"data\":{\"message\":\"first\"}}\n\n")
		fmt.Fprint(w, "event: heartbeat\ndata: {\"type\":\"heartbeat\",\"timestamp\":\"2025-06-01T00:00:00Z\"}\n\n")
		fmt.Fprint(w, "event: log\ndata: {\"type\":\"log\",\"data\":{\"message\":\"second\"}}\n\n")
	}))
	defer ts.Close()

	cmd := newLogsTailCommand(func() string { return ts.URL })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Fatalf("expected both log frames, got: %s", got)
	}
	if strings.Contains(got, "heartbeat") {
		t.Fatalf("heartbeat frame leaked into output: %s", got)
	}
}
