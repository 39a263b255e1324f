package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/miniview-io/miniview/internal/layout"
)

// LogConfig controls optional file logging with rotation.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config is the daemon configuration read from config.yaml.
type Config struct {
	Listen         string    `yaml:"listen"`
	AuthToken      string    `yaml:"auth_token"`
	Debug          bool      `yaml:"debug"`
	HostCapability bool      `yaml:"host_capability"`
	PipThreshold   float64   `yaml:"pip_threshold"`
	Log            LogConfig `yaml:"log"`
}

// Default returns the built-in daemon configuration.
func Default() Config {
	return Config{
		Listen:         "127.0.0.1:9680",
		HostCapability: true,
		PipThreshold:   layout.DefaultThreshold,
		Log: LogConfig{
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Load reads the YAML config at path, filling omitted fields with defaults.
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Listen == "" {
		cfg.Listen = Default().Listen
	}
	if cfg.PipThreshold <= 0 {
		cfg.PipThreshold = layout.DefaultThreshold
	}
	return cfg, nil
}
