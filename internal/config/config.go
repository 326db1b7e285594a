// Package config loads the typed server configuration (spec §6). Values
// come from a YAML file with environment-variable overrides, matching the
// teacher's provider-config loading style.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/mlserve/internal/mlerrors"
)

// Config is the complete configuration surface enumerated in spec §6.
type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`

	PollerIntervalSeconds int     `yaml:"poller_interval_seconds" env:"POLLER_INTERVAL_SECONDS"`
	PollerJitterFraction  float64 `yaml:"poller_jitter_fraction" env:"POLLER_JITTER_FRACTION"`

	WarmupDeadlineSeconds int `yaml:"warmup_deadline_seconds" env:"WARMUP_DEADLINE_SECONDS"`

	PredictionCacheCapacity   int `yaml:"prediction_cache_capacity" env:"PREDICTION_CACHE_CAPACITY"`
	PredictionCacheTTLSeconds int `yaml:"prediction_cache_ttl_seconds" env:"PREDICTION_CACHE_TTL_SECONDS"`
	FeatureCacheCapacity      int `yaml:"feature_cache_capacity" env:"FEATURE_CACHE_CAPACITY"`
	FeatureCacheTTLSeconds    int `yaml:"feature_cache_ttl_seconds" env:"FEATURE_CACHE_TTL_SECONDS"`
	ModelDrainWindowSeconds   int `yaml:"model_drain_window_seconds" env:"MODEL_DRAIN_WINDOW_SECONDS"`
	RequestTimeoutMS          int `yaml:"request_timeout_ms" env:"REQUEST_TIMEOUT_MS"`
	RequestQueueCapacity      int `yaml:"request_queue_capacity" env:"REQUEST_QUEUE_CAPACITY"`
	ShutdownDeadlineSeconds   int `yaml:"shutdown_deadline_seconds" env:"SHUTDOWN_DEADLINE_SECONDS"`

	PreloadModels []string `yaml:"preload_models" env:"PRELOAD_MODELS"` // "name:version|alias" entries

	Registry RegistryConfig `yaml:"registry"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RegistryConfig configures the remote model registry client.
type RegistryConfig struct {
	BaseURL        string        `yaml:"base_url" env:"REGISTRY_BASE_URL"`
	RequestsPerSec float64       `yaml:"requests_per_sec" env:"REGISTRY_RPS"`
	Burst          int           `yaml:"burst" env:"REGISTRY_BURST"`
	Timeout        time.Duration `yaml:"timeout" env:"REGISTRY_TIMEOUT"`
}

// RedisConfig configures the feature store's fast tier.
type RedisConfig struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR"` // empty = in-process fallback
}

// PostgresConfig configures the feature store's durable tier.
type PostgresConfig struct {
	DSN          string        `yaml:"dsn" env:"PG_DSN"`
	Enabled      bool          `yaml:"enabled" env:"PG_ENABLED"`
	QueryTimeout time.Duration `yaml:"query_timeout" env:"PG_QUERY_TIMEOUT"`
}

// Default returns the documented defaults from spec §6.
func Default() Config {
	return Config{
		ListenAddr:                "127.0.0.1:8080",
		LogLevel:                  "info",
		PollerIntervalSeconds:     60,
		PollerJitterFraction:      0.1,
		WarmupDeadlineSeconds:     30,
		PredictionCacheCapacity:   10000,
		PredictionCacheTTLSeconds: 300,
		FeatureCacheCapacity:      100000,
		FeatureCacheTTLSeconds:    3600,
		ModelDrainWindowSeconds:   30,
		RequestTimeoutMS:          2000,
		RequestQueueCapacity:      1024,
		ShutdownDeadlineSeconds:   30,
		Registry: RegistryConfig{
			RequestsPerSec: 5,
			Burst:          10,
			Timeout:        10 * time.Second,
		},
		Postgres: PostgresConfig{
			QueryTimeout: 5 * time.Second,
		},
	}
}

// Load reads configPath (if non-empty) over the defaults, then applies
// environment overrides, then validates.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, mlerrors.Config(err, "reading config file %s", configPath)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, mlerrors.Config(err, "parsing config file %s", configPath)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides reads LISTEN_ADDR, POLLER_INTERVAL_SECONDS, REDIS_ADDR,
// PG_DSN (which also enables Postgres) and REGISTRY_BASE_URL. The env tags
// on the other fields are not read.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("POLLER_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollerIntervalSeconds = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		cfg.Postgres.DSN = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("REGISTRY_BASE_URL"); v != "" {
		cfg.Registry.BaseURL = v
	}
}

// Validate enforces the invariants called out in spec §6 (e.g. poller
// interval floor). A ConfigError here is fatal at startup only (§7).
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return mlerrors.Config(nil, "listen_addr must not be empty")
	}
	if c.PollerIntervalSeconds < 5 {
		return mlerrors.Config(nil, "poller_interval_seconds must be >= 5, got %d", c.PollerIntervalSeconds)
	}
	if c.RequestQueueCapacity <= 0 {
		return mlerrors.Config(nil, "request_queue_capacity must be positive")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return mlerrors.Config(nil, "postgres.dsn required when postgres.enabled is true")
	}
	return nil
}

func (c Config) PollerInterval() time.Duration {
	return time.Duration(c.PollerIntervalSeconds) * time.Second
}

func (c Config) PredictionCacheTTL() time.Duration {
	return time.Duration(c.PredictionCacheTTLSeconds) * time.Second
}

func (c Config) FeatureCacheTTL() time.Duration {
	return time.Duration(c.FeatureCacheTTLSeconds) * time.Second
}

func (c Config) ModelDrainWindow() time.Duration {
	return time.Duration(c.ModelDrainWindowSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func (c Config) ShutdownDeadline() time.Duration {
	return time.Duration(c.ShutdownDeadlineSeconds) * time.Second
}

func (c Config) WarmupDeadline() time.Duration {
	return time.Duration(c.WarmupDeadlineSeconds) * time.Second
}

