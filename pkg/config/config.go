// Package config loads engine configuration from an HCL file, layered over
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl"
)

// Config holds the tunable knobs of the engine.
type Config struct {
	DataDir       string `hcl:"data_dir"`
	LogPath       string `hcl:"log_path"`
	BufferPages   int    `hcl:"buffer_pages"`
	LockTimeoutMs int    `hcl:"lock_timeout_ms"`
	LogLevel      string `hcl:"log_level"`
	LogFormat     string `hcl:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:       "data",
		LogPath:       "tupledb.log",
		BufferPages:   50,
		LockTimeoutMs: 100,
		LogLevel:      "INFO",
		LogFormat:     "text",
	}
}

// Load reads an HCL config file and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := hcl.Decode(&cfg, string(b)); err != nil {
		return cfg, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for nonsensical values.
func (c Config) Validate() error {
	if c.BufferPages <= 0 {
		return fmt.Errorf("buffer_pages must be positive, got %d", c.BufferPages)
	}
	if c.LockTimeoutMs <= 0 {
		return fmt.Errorf("lock_timeout_ms must be positive, got %d", c.LockTimeoutMs)
	}
	return nil
}

// LockTimeout returns the lock timeout as a duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}
