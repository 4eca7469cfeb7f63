// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for dashboard binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - DREAMVISITOR_CONFIG environment variable, or
//   - --config flag passed to the command
//
// When neither is set, built-in defaults apply. A single environment
// variable, DREAMVISITOR_GATEWAY_URL, overrides the gateway base URL
// regardless of the file contents so that the same config file works
// against local and remote gateways.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "DREAMVISITOR_CONFIG"

// EnvGatewayURL overrides the gateway base URL.
const EnvGatewayURL = "DREAMVISITOR_GATEWAY_URL"

// DefaultGatewayURL is the local development gateway endpoint used
// when no file or environment override names one.
const DefaultGatewayURL = "http://127.0.0.1:8090"

// Config is the master configuration for the dashboard.
type Config struct {
	// Gateway configures the record gateway connection.
	Gateway GatewayConfig `yaml:"gateway"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Console configures console view behavior.
	Console ConsoleConfig `yaml:"console"`
}

// GatewayConfig configures the gateway client.
type GatewayConfig struct {
	// URL is the gateway base URL (e.g. "http://127.0.0.1:8090").
	URL string `yaml:"url"`

	// RequestTimeout bounds individual record operations. Zero means
	// no client-side timeout beyond context deadlines.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is one of: debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Output is a file path for JSON log records. Empty discards
	// logs while the TUI owns the terminal.
	Output string `yaml:"output"`
}

// ConsoleConfig configures the console view.
type ConsoleConfig struct {
	// HistoryLimit caps how many log and command records the initial
	// bulk fetch loads. Zero uses the default of 500.
	HistoryLimit int `yaml:"history_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Gateway: GatewayConfig{
			URL:            DefaultGatewayURL,
			RequestTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Console: ConsoleConfig{
			HistoryLimit: 500,
		},
	}
}

// Load reads configuration. The flagPath (from --config) takes
// precedence over the DREAMVISITOR_CONFIG environment variable; when
// both are empty, defaults are returned. The gateway URL environment
// override is applied last.
func Load(flagPath string) (Config, error) {
	cfg := Default()

	path := flagPath
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if url := os.Getenv(EnvGatewayURL); url != "" {
		cfg.Gateway.URL = url
	}
	if cfg.Gateway.URL == "" {
		cfg.Gateway.URL = DefaultGatewayURL
	}
	if cfg.Console.HistoryLimit <= 0 {
		cfg.Console.HistoryLimit = 500
	}

	return cfg, nil
}
