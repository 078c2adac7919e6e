package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr string        `json:"httpAddr" yaml:"httpAddr"`
	History  HistoryConfig `json:"history" yaml:"history"`
	Stream   StreamConfig  `json:"stream" yaml:"stream"`
	Auth     AuthConfig    `json:"auth" yaml:"auth"`
}

// HistoryConfig bounds the retained log window.
type HistoryConfig struct {
	// Capacity is the maximum number of retained records. Oldest records are
	// evicted first once the bound is reached.
	Capacity int `json:"capacity" yaml:"capacity"`
	// FetchMultiple is the raw over-fetch factor applied before filtering so
	// selective filters still fill the requested result size.
	FetchMultiple int `json:"fetchMultiple" yaml:"fetchMultiple"`
}

// StreamConfig tunes per-connection streaming behavior.
type StreamConfig struct {
	// QueueSize is the bounded outbound queue per connection (frames).
	QueueSize int `json:"queueSize" yaml:"queueSize"`
	// BusBuffer is the buffered channel size per event-bus subscriber.
	BusBuffer int `json:"busBuffer" yaml:"busBuffer"`
	// HeartbeatInterval is how often idle connections receive a heartbeat.
	HeartbeatInterval time.Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	// IdleTimeout tears down connections with no client traffic.
	IdleTimeout time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	// BackfillLimit caps the recent-history window sent on connect.
	BackfillLimit int `json:"backfillLimit" yaml:"backfillLimit"`
}

// AuthConfig configures the static viewer-token resolver. An external
// resolver can replace it at wiring time; these fields only feed the
// built-in one.
type AuthConfig struct {
	// AllowAnonymous admits connections without a token (development).
	AllowAnonymous bool `json:"allowAnonymous" yaml:"allowAnonymous"`
	// Tokens maps viewer identity -> token. A value starting with "$2"
	// is treated as a bcrypt hash, otherwise compared in constant time.
	Tokens map[string]string `json:"tokens" yaml:"tokens"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		History: HistoryConfig{
			Capacity:      1000,
			FetchMultiple: 5,
		},
		Stream: StreamConfig{
			QueueSize:         256,
			BusBuffer:         64,
			HeartbeatInterval: 30 * time.Second,
			IdleTimeout:       90 * time.Second,
			BackfillLimit:     100,
		},
		Auth: AuthConfig{
			AllowAnonymous: true,
		},
	}
}

// Load reads configuration from a JSON or YAML file by extension. An empty
// path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
