// Package config defines the server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Sandbox  SandboxConfig  `json:"sandbox" yaml:"sandbox"`
	Fixer    FixerConfig    `json:"fixer" yaml:"fixer"`
	Registry RegistryConfig `json:"registry" yaml:"registry"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8080"
}

// SandboxConfig bounds candidate execution.
type SandboxConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxSteps       int `json:"max_steps" yaml:"max_steps"`
}

// Timeout returns the execution ceiling as a duration.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FixerConfig bounds the repair loop.
type FixerConfig struct {
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// RegistryConfig locates the algorithm database.
type RegistryConfig struct {
	Path string `json:"path" yaml:"path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Sandbox: SandboxConfig{
			TimeoutSeconds: 5,
			MaxSteps:       100_000,
		},
		Fixer: FixerConfig{
			MaxIterations: 5,
		},
		Registry: RegistryConfig{
			Path: "./data/algorithms.db",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
