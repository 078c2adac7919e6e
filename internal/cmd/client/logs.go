// Package client contains Cobra CLI commands that talk to a running
// telepanel server over its HTTP API.
package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewLogsCommand constructs the `logs` command group and subcommands.
func NewLogsCommand(baseURL BaseURLFunc) *cobra.Command {
	logsCmd := &cobra.Command{Use: "logs", Short: "Log operations"}

	logsCmd.AddCommand(
		newLogsIngestCommand(baseURL),
		newLogsFetchCommand(baseURL),
		newLogsTailCommand(baseURL),
		newEventPublishCommand(baseURL),
	)

	return logsCmd
}

// newLogsIngestCommand constructs the `logs ingest` subcommand.
func newLogsIngestCommand(baseURL BaseURLFunc) *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Send one log record to the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("level")
			logger, _ := cmd.Flags().GetString("logger")
			message, _ := cmd.Flags().GetString("message")
			module, _ := cmd.Flags().GetString("module")

			body := map[string]any{
				"timestamp": time.Now().Format(time.RFC3339Nano),
				"level":     level,
				"logger":    logger,
				"message":   message,
			}
			if module != "" {
				body["module"] = module
			}
			b, _ := json.Marshal(body)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				baseURL()+"/v1/logs/ingest", bytes.NewReader(b))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			addToken(req)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "status:", resp.Status)
			return nil
		},
	}
	ingestCmd.Flags().String("level", "INFO", "Record level: DEBUG|INFO|WARNING|ERROR|CRITICAL")
	ingestCmd.Flags().String("logger", "cli", "Logger name")
	ingestCmd.Flags().String("message", "", "Log message")
	ingestCmd.Flags().String("module", "", "Source module (optional)")
	_ = ingestCmd.MarkFlagRequired("message")
	return ingestCmd
}

// newLogsFetchCommand constructs the `logs fetch` subcommand.
func newLogsFetchCommand(baseURL BaseURLFunc) *cobra.Command {
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch recent log records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			u := baseURL() + "/v1/logs?" + filterQuery(cmd, url.Values{
				"limit": []string{strconv.Itoa(limit)},
			})
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			addToken(req)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("fetch failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
			}
			var out struct {
				Logs []json.RawMessage `json:"logs"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, l := range out.Logs {
				_ = enc.Encode(l)
			}
			return nil
		},
	}
	fetchCmd.Flags().Int("limit", 100, "Maximum records to return")
	addFilterFlags(fetchCmd)
	return fetchCmd
}

// newLogsTailCommand constructs the `logs tail` subcommand. It follows the
// server's SSE stream: backfill first, then live frames until interrupted.
func newLogsTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream log records live (backfill then follow)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := baseURL() + "/v1/logs/sse?" + filterQuery(cmd, url.Values{})
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			addToken(req)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("stream failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
			}

			out := cmd.OutOrStdout()
			sc := bufio.NewScanner(resp.Body)
			sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for sc.Scan() {
				line := sc.Text()
				if !strings.HasPrefix(line, "data: ") {
					continue
				}
				payload := strings.TrimPrefix(line, "data: ")
				// Heartbeats keep the connection alive; not output.
				if strings.Contains(payload, `"type":"heartbeat"`) {
					continue
				}
				fmt.Fprintln(out, payload)
			}
			if err := sc.Err(); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
	addFilterFlags(tailCmd)
	return tailCmd
}

// newEventPublishCommand constructs the `logs event` subcommand for pushing
// dashboard events.
func newEventPublishCommand(baseURL BaseURLFunc) *cobra.Command {
	eventCmd := &cobra.Command{
		Use:   "event",
		Short: "Publish a dashboard event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			dataJSON, _ := cmd.Flags().GetString("data")

			body := map[string]any{"kind": kind}
			if dataJSON != "" {
				var data map[string]any
				if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
				body["data"] = data
			}
			b, _ := json.Marshal(body)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				baseURL()+"/v1/events/publish", bytes.NewReader(b))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			addToken(req)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "status:", resp.Status)
			return nil
		},
	}
	eventCmd.Flags().String("kind", "", "Event kind: verification|system|protection")
	eventCmd.Flags().String("data", "", "Event payload as a JSON object")
	_ = eventCmd.MarkFlagRequired("kind")
	return eventCmd
}

// addFilterFlags registers the shared filter flags on read commands.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("level", "", "Only records with exactly this level")
	cmd.Flags().String("logger", "", "Only loggers containing this substring")
	cmd.Flags().String("search", "", "Case-insensitive search over message and logger")
	cmd.Flags().String("expr", "", "CEL filter expression (server-side)")
}

// filterQuery encodes the shared filter flags into query parameters.
func filterQuery(cmd *cobra.Command, q url.Values) string {
	for _, name := range []string{"level", "logger", "search", "expr"} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			q.Set(name, v)
		}
	}
	return q.Encode()
}

// addToken attaches the viewer token from TELEPANEL_TOKEN, when set.
func addToken(req *http.Request) {
	if tok := os.Getenv("TELEPANEL_TOKEN"); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}
