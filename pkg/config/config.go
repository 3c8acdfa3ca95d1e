package config

import internalconfig "github.com/SmitUplenchwar2687/admit/internal/config"

// Config is the top-level configuration for an admit session.
type Config = internalconfig.Config

// ServerConfig holds HTTP server settings.
type ServerConfig = internalconfig.ServerConfig

// LimitConfig is one configured sliding window.
type LimitConfig = internalconfig.LimitConfig

// AdmissionConfig tunes how blocked callers wait.
type AdmissionConfig = internalconfig.AdmissionConfig

// ActionConfig shapes the demo action.
type ActionConfig = internalconfig.ActionConfig

// RecorderConfig holds admission audit settings.
type RecorderConfig = internalconfig.RecorderConfig

// RedisConfig configures the Redis stream sink.
type RedisConfig = internalconfig.RedisConfig

// LogConfig selects the logger.
type LogConfig = internalconfig.LogConfig

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig = internalconfig.MetricsConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// LoadFile reads a JSON or YAML config file and merges it with defaults.
func LoadFile(path string) (Config, error) {
	return internalconfig.LoadFile(path)
}

// Load applies defaults, the file at path, .env files and ADMIT_* variables.
func Load(path string, envFiles ...string) (Config, error) {
	return internalconfig.Load(path, envFiles...)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
