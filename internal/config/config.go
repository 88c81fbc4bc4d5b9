// Package config provides configuration management for the ledger engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Store   StoreConfig   `mapstructure:"store"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig holds engine-level settings.
type EngineConfig struct {
	Mode            string `mapstructure:"mode"`              // "live", "paper"
	DefaultExchange string `mapstructure:"default_exchange"`  // NSE, BSE
	DefaultCurrency string `mapstructure:"default_currency"`  // INR
	StatsWindowDays int    `mapstructure:"stats_window_days"` // aggregation lookback
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"` // sqlite database path
}

// SweepConfig holds expiration sweep and retention settings.
type SweepConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradeledger"
	}
	return filepath.Join(home, ".config", "tradeledger")
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. Missing files fall back to
// defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("engine.mode", "live")
	v.SetDefault("engine.default_exchange", "NSE")
	v.SetDefault("engine.default_currency", "INR")
	v.SetDefault("engine.stats_window_days", 30)
	v.SetDefault("store.path", filepath.Join(configDir, "ledger.db"))
	v.SetDefault("sweep.interval", time.Minute)
	v.SetDefault("sweep.retention_days", 90)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "ledger.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADELEDGER_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v := os.Getenv("TRADELEDGER_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TRADELEDGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.Mode != "live" && c.Engine.Mode != "paper" {
		return fmt.Errorf("invalid engine mode: %s (must be 'live' or 'paper')", c.Engine.Mode)
	}
	if c.Engine.StatsWindowDays <= 0 {
		return fmt.Errorf("stats_window_days must be positive")
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.Sweep.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Engine.Mode == "paper"
}

// Retention returns the retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Sweep.RetentionDays) * 24 * time.Hour
}
