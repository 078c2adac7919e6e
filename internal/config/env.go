package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays TELEPANEL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TELEPANEL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("TELEPANEL_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.History.Capacity = n
		}
	}
	if v := os.Getenv("TELEPANEL_HISTORY_FETCH_MULTIPLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.History.FetchMultiple = n
		}
	}
	if v := os.Getenv("TELEPANEL_STREAM_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Stream.QueueSize = n
		}
	}
	if v := os.Getenv("TELEPANEL_STREAM_BUS_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Stream.BusBuffer = n
		}
	}
	if v := os.Getenv("TELEPANEL_STREAM_HEARTBEAT_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.Stream.HeartbeatInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TELEPANEL_STREAM_IDLE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.Stream.IdleTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TELEPANEL_STREAM_BACKFILL_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Stream.BackfillLimit = n
		}
	}
	if v := os.Getenv("TELEPANEL_AUTH_ALLOW_ANONYMOUS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.AllowAnonymous = b
		}
	}
}
