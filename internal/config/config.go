// Package config handles loading and validation of dyndns configuration
// from positional arguments, environment variables and an optional file.
package config

import (
	"time"
)

// Config holds the complete, validated runtime configuration.
type Config struct {
	Target Target
	Global *GlobalConfig
}

// Load builds the runtime configuration for target. Settings are layered as
// defaults, then the file named by DYNDNS_CONFIG, then environment variables.
// All problems are collected and returned as a single *ValidationError.
func Load(target Target) (*Config, error) {
	var errs []string

	fileGlobal, fileErrs := loadFromFile(GetConfigFilePath())
	errs = append(errs, fileErrs...)

	global, envErrs := mergeGlobalConfig(fileGlobal)
	errs = append(errs, envErrs...)

	cfg := &Config{Target: target, Global: global}
	errs = append(errs, validateConfig(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string { return c.Global.LogLevel }

// LogFormat returns the configured log format.
func (c *Config) LogFormat() string { return c.Global.LogFormat }

// DryRun reports whether updates are only logged.
func (c *Config) DryRun() bool { return c.Global.DryRun }

// Interval returns the delay between cycles.
func (c *Config) Interval() time.Duration { return c.Global.Interval }

// HealthPort returns the health server port; 0 means disabled.
func (c *Config) HealthPort() int { return c.Global.HealthPort }

// PublishedResolver returns the resolver for the tracked record, falling back
// to def when none is configured.
func (c *Config) PublishedResolver(def string) string {
	if c.Global.PublishedResolver != "" {
		return c.Global.PublishedResolver
	}
	return def
}

// SecretKey returns the credential field name, falling back to def when none
// is configured.
func (c *Config) SecretKey(def string) string {
	if c.Global.Vault.SecretKey != "" {
		return c.Global.Vault.SecretKey
	}
	return def
}
