// Package config loads fieldsync configuration from file, environment,
// and defaults (viper), and persists the small per-device session state
// (which activity/cycle is loaded).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunable settings. Precedence: flags (bound by the
// CLI) > environment (FIELDSYNC_*) > config file > defaults.
type Config struct {
	// RemoteURL is the remote authority endpoint.
	RemoteURL string `mapstructure:"remote_url"`

	// DataDir holds the outbox database, session file, and spool.
	DataDir string `mapstructure:"data_dir"`

	// ProbeInterval is how often the connectivity monitor pings the remote.
	ProbeInterval time.Duration `mapstructure:"probe_interval"`

	// SyncInterval is the agent's periodic sync safety net (0 disables).
	SyncInterval time.Duration `mapstructure:"sync_interval"`

	// IndicatorPort is the agent's indicator WebSocket port.
	IndicatorPort int `mapstructure:"indicator_port"`

	// LogFile, when set, routes agent logs to a rotated file instead of
	// stderr.
	LogFile string `mapstructure:"log_file"`

	// LogMaxSizeMB caps each rotated log file's size.
	LogMaxSizeMB int `mapstructure:"log_max_size_mb"`

	// LogMaxBackups caps how many rotated files are kept.
	LogMaxBackups int `mapstructure:"log_max_backups"`
}

// DefaultDataDir returns ~/.fieldsync, falling back to a relative
// directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fieldsync"
	}
	return filepath.Join(home, ".fieldsync")
}

// Load reads configuration. A missing config file is not an error; the
// defaults and environment still apply.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)

	v.SetEnvPrefix("fieldsync")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote_url", "")
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("probe_interval", 15*time.Second)
	v.SetDefault("sync_interval", 5*time.Minute)
	v.SetDefault("indicator_port", 8477)
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// DBPath returns the outbox database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "outbox.db")
}

// SessionPath returns the session state file location.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// SpoolDir returns the bulk-import spool directory.
func (c *Config) SpoolDir() string {
	return filepath.Join(c.DataDir, "spool")
}
