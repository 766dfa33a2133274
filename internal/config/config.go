// Package config loads the daemon's persisted JSON configuration and the
// IndexingPolicy presets layered underneath it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// Profile is the closed set of indexing profiles a Config may select.
type Profile string

const (
	ProfileDeveloper Profile = "developer"
	ProfilePersonal  Profile = "personal"
	ProfileBalanced  Profile = "balanced"
)

// Config is the daemon's persisted configuration.
type Config struct {
	Host                  string   `json:"host"`
	Port                  int      `json:"port"`
	AuthToken             string   `json:"authToken"`
	IndexingProfile       Profile  `json:"indexingProfile"`
	StartupAllowlistRoots []string `json:"startupAllowlistRoots"`
	QueueBatchSize        int      `json:"queueBatchSize"`
}

// Default returns the hardcoded baseline configuration. Load layers a
// user file and environment overrides on top of this, following a
// defaults-then-file-then-env precedence.
func Default() Config {
	return Config{
		Host:                  "127.0.0.1",
		Port:                  0,
		AuthToken:             "",
		IndexingProfile:       ProfileBalanced,
		StartupAllowlistRoots: nil,
		QueueBatchSize:        64,
	}
}

// Validate checks structural invariants, returning a
// MalformedConfiguration error on failure.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return daemonerr.Config(fmt.Sprintf("port out of range: %d", c.Port), nil)
	}
	switch c.IndexingProfile {
	case ProfileDeveloper, ProfilePersonal, ProfileBalanced, "":
	default:
		return daemonerr.Config(fmt.Sprintf("unknown indexingProfile: %s", c.IndexingProfile), nil)
	}
	if c.QueueBatchSize <= 0 {
		return daemonerr.Config("queueBatchSize must be positive", nil)
	}
	return nil
}

// Load reads and merges configuration: hardcoded defaults, then the JSON
// file at path (if present), then environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, daemonerr.Config("failed to read config file", err)
			}
		} else {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, daemonerr.Config("failed to parse config file", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RETRIEVAL_DAEMON_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("RETRIEVAL_DAEMON_AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
}

// Save persists cfg as pretty JSON to path, creating parent directories
// as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return daemonerr.Config("failed to create config directory", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return daemonerr.Config("failed to encode config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return daemonerr.Config("failed to write config file", err)
	}
	return nil
}
