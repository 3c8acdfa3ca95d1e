package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ADMIT_"

// Config is the top-level configuration for an admit session.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Limits    []LimitConfig   `json:"limits"`
	Admission AdmissionConfig `json:"admission"`
	Action    ActionConfig    `json:"action"`
	Recorder  RecorderConfig  `json:"recorder"`
	Log       LogConfig       `json:"log"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// LimitConfig is one sliding window: at most Max admissions per Window.
type LimitConfig struct {
	Max    int           `json:"max"`
	Window time.Duration `json:"window"`
}

// AdmissionConfig tunes how blocked callers wait.
type AdmissionConfig struct {
	PollInterval time.Duration `json:"poll_interval"`
	Strategy     string        `json:"strategy"`
}

// ActionConfig shapes the demo action behind the server.
type ActionConfig struct {
	Work time.Duration `json:"work"` // simulated work per admitted call
}

// RecorderConfig holds admission audit settings.
type RecorderConfig struct {
	Path  string      `json:"path"` // NDJSON stream of records; empty disables
	Redis RedisConfig `json:"redis"`
}

// RedisConfig configures the Redis stream sink. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Stream   string `json:"stream"`
	MaxLen   int64  `json:"max_len"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // console or json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Limits: []LimitConfig{
			{Max: 10, Window: 3 * time.Second},
			{Max: 100, Window: time.Minute},
			{Max: 1000, Window: 24 * time.Hour},
		},
		Admission: AdmissionConfig{
			PollInterval: limiter.DefaultPollInterval,
			Strategy:     string(limiter.StrategyPoll),
		},
		Recorder: RecorderConfig{
			Redis: RedisConfig{
				Stream: "admit:admissions",
				MaxLen: 100000,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if _, err := c.LimitSet(); err != nil {
		return err
	}
	if c.Admission.PollInterval <= 0 {
		return fmt.Errorf("admission.poll_interval must be positive, got %s", c.Admission.PollInterval)
	}
	if _, err := limiter.ParseStrategy(c.Admission.Strategy); err != nil {
		return fmt.Errorf("admission.strategy: %w", err)
	}
	if c.Action.Work < 0 {
		return fmt.Errorf("action.work must not be negative, got %s", c.Action.Work)
	}
	if c.Recorder.Redis.Addr != "" && c.Recorder.Redis.DB < 0 {
		return fmt.Errorf("recorder.redis.db must not be negative, got %d", c.Recorder.Redis.DB)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q, must be one of: console, json", c.Log.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}

// LimitSet converts the configured windows into limiter limits.
func (c Config) LimitSet() ([]limiter.Limit, error) {
	if len(c.Limits) == 0 {
		return nil, fmt.Errorf("%w: at least one limit is required", limiter.ErrInvalidArgument)
	}
	out := make([]limiter.Limit, len(c.Limits))
	for i, lc := range c.Limits {
		l, err := limiter.NewLimit(lc.Max, lc.Window)
		if err != nil {
			return nil, fmt.Errorf("limits[%d]: %w", i, err)
		}
		out[i] = l
	}
	return out, nil
}

// SetLimits replaces the configured windows.
func (c *Config) SetLimits(limits []limiter.Limit) {
	c.Limits = make([]LimitConfig, len(limits))
	for i, l := range limits {
		c.Limits[i] = LimitConfig{Max: l.MaxCount(), Window: l.Window()}
	}
}

// LoadFile reads a JSON or YAML config file, chosen by extension, and
// merges it with defaults. Fields not specified in the file retain their
// default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// Use a raw intermediate struct to handle duration parsing.
	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := raw.merge(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// rawConfig is the file representation with string durations.
type rawConfig struct {
	Server struct {
		Addr string `json:"addr" yaml:"addr"`
	} `json:"server" yaml:"server"`
	Limits []struct {
		Max    int    `json:"max" yaml:"max"`
		Window string `json:"window" yaml:"window"`
	} `json:"limits" yaml:"limits"`
	Admission struct {
		PollInterval string `json:"poll_interval" yaml:"poll_interval"`
		Strategy     string `json:"strategy" yaml:"strategy"`
	} `json:"admission" yaml:"admission"`
	Action struct {
		Work string `json:"work" yaml:"work"`
	} `json:"action" yaml:"action"`
	Recorder struct {
		Path  string `json:"path" yaml:"path"`
		Redis struct {
			Addr     string `json:"addr" yaml:"addr"`
			Password string `json:"password" yaml:"password"`
			DB       int    `json:"db" yaml:"db"`
			Stream   string `json:"stream" yaml:"stream"`
			MaxLen   int64  `json:"max_len" yaml:"max_len"`
		} `json:"redis" yaml:"redis"`
	} `json:"recorder" yaml:"recorder"`
	Log struct {
		Level  string `json:"level" yaml:"level"`
		Format string `json:"format" yaml:"format"`
	} `json:"log" yaml:"log"`
	Metrics struct {
		Enabled *bool  `json:"enabled" yaml:"enabled"`
		Path    string `json:"path" yaml:"path"`
	} `json:"metrics" yaml:"metrics"`
}

func (raw rawConfig) merge(cfg *Config) error {
	if raw.Server.Addr != "" {
		cfg.Server.Addr = raw.Server.Addr
	}

	if len(raw.Limits) > 0 {
		cfg.Limits = make([]LimitConfig, len(raw.Limits))
		for i, l := range raw.Limits {
			d, err := time.ParseDuration(l.Window)
			if err != nil {
				return fmt.Errorf("parsing limits[%d].window: %w", i, err)
			}
			cfg.Limits[i] = LimitConfig{Max: l.Max, Window: d}
		}
	}

	if raw.Admission.PollInterval != "" {
		d, err := time.ParseDuration(raw.Admission.PollInterval)
		if err != nil {
			return fmt.Errorf("parsing admission.poll_interval: %w", err)
		}
		cfg.Admission.PollInterval = d
	}
	if raw.Admission.Strategy != "" {
		cfg.Admission.Strategy = raw.Admission.Strategy
	}

	if raw.Action.Work != "" {
		d, err := time.ParseDuration(raw.Action.Work)
		if err != nil {
			return fmt.Errorf("parsing action.work: %w", err)
		}
		cfg.Action.Work = d
	}

	if raw.Recorder.Path != "" {
		cfg.Recorder.Path = raw.Recorder.Path
	}
	if raw.Recorder.Redis.Addr != "" {
		cfg.Recorder.Redis.Addr = raw.Recorder.Redis.Addr
	}
	if raw.Recorder.Redis.Password != "" {
		cfg.Recorder.Redis.Password = raw.Recorder.Redis.Password
	}
	if raw.Recorder.Redis.DB != 0 {
		cfg.Recorder.Redis.DB = raw.Recorder.Redis.DB
	}
	if raw.Recorder.Redis.Stream != "" {
		cfg.Recorder.Redis.Stream = raw.Recorder.Redis.Stream
	}
	if raw.Recorder.Redis.MaxLen > 0 {
		cfg.Recorder.Redis.MaxLen = raw.Recorder.Redis.MaxLen
	}

	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	if raw.Log.Format != "" {
		cfg.Log.Format = raw.Log.Format
	}

	if raw.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *raw.Metrics.Enabled
	}
	if raw.Metrics.Path != "" {
		cfg.Metrics.Path = raw.Metrics.Path
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Variables
// that are already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from ADMIT_* variables found through lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := get("LIMITS"); ok {
		limits, err := limiter.ParseLimits(v)
		if err != nil {
			return fmt.Errorf("%sLIMITS: %w", EnvPrefix, err)
		}
		c.SetLimits(limits)
	}
	if v, ok := get("POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPOLL_INTERVAL: %w", EnvPrefix, err)
		}
		c.Admission.PollInterval = d
	}
	if v, ok := get("STRATEGY"); ok {
		c.Admission.Strategy = v
	}
	if v, ok := get("WORK"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sWORK: %w", EnvPrefix, err)
		}
		c.Action.Work = d
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Recorder.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.Recorder.Redis.Password = v
	}
	if v, ok := get("REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Recorder.Redis.DB = db
	}
	if v, ok := get("METRICS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMETRICS_ENABLED: %w", EnvPrefix, err)
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

// Load builds the effective config: defaults, then the file at path if
// non-empty, then .env files, then ADMIT_* variables.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := LoadDotEnv(envFiles...); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const exampleJSON = `{
  "server": {
    "addr": ":8080"
  },
  "limits": [
    { "max": 10, "window": "3s" },
    { "max": 100, "window": "1m" },
    { "max": 1000, "window": "24h" }
  ],
  "admission": {
    "poll_interval": "10ms",
    "strategy": "poll"
  },
  "action": {
    "work": "50ms"
  },
  "recorder": {
    "path": "",
    "redis": {
      "addr": "",
      "stream": "admit:admissions",
      "max_len": 100000
    }
  },
  "log": {
    "level": "info",
    "format": "console"
  },
  "metrics": {
    "enabled": true,
    "path": "/metrics"
  }
}
`

const exampleYAML = `server:
  addr: ":8080"
limits:
  - max: 10
    window: 3s
  - max: 100
    window: 1m
  - max: 1000
    window: 24h
admission:
  poll_interval: 10ms
  strategy: poll # or serialized
action:
  work: 50ms
recorder:
  path: ""
  redis:
    addr: ""
    stream: admit:admissions
    max_len: 100000
log:
  level: info
  format: console
metrics:
  enabled: true
  path: /metrics
`

// WriteExample writes an example config file to the given path, as YAML
// when the extension asks for it and JSON otherwise.
func WriteExample(path string) error {
	example := exampleJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		example = exampleYAML
	}
	return os.WriteFile(path, []byte(example), 0o644)
}
