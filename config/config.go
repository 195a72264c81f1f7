// Package config loads and saves runtime configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the host configuration for the simulation runtime.
type Config struct {
	// SearchPaths are directories scanned for module artifacts, in order.
	SearchPaths []string `yaml:"search_paths"`

	// DefaultDt is the scheduler timestep in simulated seconds.
	DefaultDt float64 `yaml:"default_dt"`

	// MemoryLimitPages caps each instance's linear memory in 64KiB pages.
	// 0 leaves the engine default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	// Workers is the number of goroutines stepping instances per tick.
	Workers int `yaml:"workers"`

	// ErrorRetention bounds the per-instance history of the error sink.
	ErrorRetention int `yaml:"error_retention"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SearchPaths:    []string{"."},
		DefaultDt:      1.0 / 60,
		Workers:        1,
		ErrorRetention: 8,
		LogLevel:       "info",
	}
}

// Load reads a YAML configuration file. Fields absent from the file keep
// their defaults. A missing file is an error; callers that treat the file
// as optional should check os.IsNotExist.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func (c *Config) validate() error {
	if c.DefaultDt <= 0 {
		return fmt.Errorf("default_dt must be > 0, got %g", c.DefaultDt)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
