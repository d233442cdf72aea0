// Package config holds application configuration for the sync core.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Sync      SyncConfig      `yaml:"sync"`
	Queue     QueueConfig     `yaml:"queue"`
	Cache     CacheConfig     `yaml:"cache"`
	Conflict  ConflictConfig  `yaml:"conflict"`
	DataUsage DataUsageConfig `yaml:"data_usage"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DatabaseConfig holds local store settings.
type DatabaseConfig struct {
	DataDir string `yaml:"data_dir" env:"DATABASE_DATA_DIR" env-default:"./data"`
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	Interval    time.Duration `yaml:"interval"      env:"SYNC_INTERVAL"      env-default:"15m"`
	BatchSize   int           `yaml:"batch_size"    env:"SYNC_BATCH_SIZE"    env-default:"5"`
	CallTimeout time.Duration `yaml:"call_timeout"  env:"SYNC_CALL_TIMEOUT"  env-default:"10s"`
	HistorySize int           `yaml:"history_size"  env:"SYNC_HISTORY_SIZE"  env-default:"10"`
}

// QueueConfig holds offline queue settings.
type QueueConfig struct {
	MaxRetries    int           `yaml:"max_retries"    env:"QUEUE_MAX_RETRIES"    env-default:"5"`
	BaseDelay     time.Duration `yaml:"base_delay"     env:"QUEUE_BASE_DELAY"     env-default:"30s"`
	RetentionDays int           `yaml:"retention_days" env:"QUEUE_RETENTION_DAYS" env-default:"7"`
}

// CacheConfig holds local cache settings.
type CacheConfig struct {
	Validity time.Duration `yaml:"validity" env:"CACHE_VALIDITY" env-default:"24h"`
}

// ConflictConfig holds conflict store settings.
type ConflictConfig struct {
	RetentionDays int `yaml:"retention_days" env:"CONFLICT_RETENTION_DAYS" env-default:"7"`
}

// DataUsageConfig holds user data-usage limits. The booleans default to true
// but carry no env-default tag: cleanenv re-applies env-default whenever a
// field holds its zero value, which would stomp an explicit false from the
// config file. Defaults are pre-set in Load instead.
type DataUsageConfig struct {
	AllowCellular     bool   `yaml:"allow_cellular"       env:"DATA_USAGE_ALLOW_CELLULAR"`
	PreloadOnWifiOnly bool   `yaml:"preload_on_wifi_only" env:"DATA_USAGE_PRELOAD_ON_WIFI_ONLY"`
	MediaQuality      string `yaml:"media_quality"        env:"DATA_USAGE_MEDIA_QUALITY"        env-default:"medium"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// MetricsConfig holds the optional metrics endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR" env-default:""`
}

// Load reads configuration from the given YAML file, with environment
// variables taking precedence. An empty path loads from environment only.
func Load(path string) (*Config, error) {
	cfg := Config{
		DataUsage: DataUsageConfig{
			AllowCellular:     true,
			PreloadOnWifiOnly: true,
		},
	}
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return &cfg, nil
}
