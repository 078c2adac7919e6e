// Package config provides loading and environment overlay for telepanel
// configuration. It exposes a Default() baseline, a Load() that accepts JSON
// or YAML by extension, and FromEnv() to overlay TELEPANEL_* variables.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/telepanel.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
