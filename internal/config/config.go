// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package config loads CLI configuration from a YAML file with flag
// overrides.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the CLI configuration.
type Config struct {
	Plugins       PluginsConfig       `koanf:"plugins"`
	Logging       LoggingConfig       `koanf:"logging"`
	Runtime       RuntimeConfig       `koanf:"runtime"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// PluginsConfig locates plugins on disk.
type PluginsConfig struct {
	// Paths are directories scanned for plugin subdirectories.
	Paths []string `koanf:"paths"`

	// Packages are individual plugin directories.
	Packages []string `koanf:"packages"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// RuntimeConfig controls runtime construction.
type RuntimeConfig struct {
	// PerformanceMonitoring enables Prometheus metrics.
	PerformanceMonitoring bool `koanf:"performance_monitoring"`

	// Host holds literal host context values handed to plugins.
	Host map[string]any `koanf:"host"`
}

// ObservabilityConfig controls the metrics and health endpoint.
type ObservabilityConfig struct {
	// Addr is the listen address for /metrics and health probes. Empty
	// disables the endpoint.
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when no file or flags are given.
func Default() Config {
	return Config{
		Plugins: PluginsConfig{
			Paths: []string{"plugins"},
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Load reads configuration in precedence order: defaults, then the YAML
// file (if given), then command-line flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
