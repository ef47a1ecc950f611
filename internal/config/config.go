package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a parallax session.
// Values are populated from .parallax.yaml, PARALLAX_* env vars, and CLI flags.
type Config struct {
	JournalDir     string        `mapstructure:"journal_dir"`
	CacheDir       string        `mapstructure:"cache_dir"`
	StatusFile     string        `mapstructure:"status_file"`
	TailInterval   time.Duration `mapstructure:"tail_interval"`
	StatusInterval time.Duration `mapstructure:"status_interval"`
	LineBuffer     int           `mapstructure:"line_buffer"`
	LedgerPath     string        `mapstructure:"ledger_path"`
	TelemetryPath  string        `mapstructure:"telemetry_path"`
	Listen         string        `mapstructure:"listen"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
	Verbose        bool          `mapstructure:"verbose"`
}

// File names used under CacheDir when the paths are not configured.
const (
	LedgerFileName    = "ledger.db"
	TelemetryFileName = "activity.jsonl"
)

// DefaultJournalDir returns the directory the game writes journals to on a
// default install, relative to the user's home.
func DefaultJournalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Saved Games", "Frontier Developments", "Elite Dangerous")
}

// DefaultCacheDir returns the per-user cache directory for parallax.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "parallax")
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags. The ledger and
// activity log default to files under the cache directory.
func Load() (Config, error) {
	viper.SetDefault("journal_dir", DefaultJournalDir())
	viper.SetDefault("cache_dir", DefaultCacheDir())
	viper.SetDefault("status_file", "")
	viper.SetDefault("tail_interval", "250ms")
	viper.SetDefault("status_interval", "1s")
	viper.SetDefault("line_buffer", 1024)
	viper.SetDefault("ledger_path", "")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("listen", "127.0.0.1:8643")
	viper.SetDefault("allow_origins", []string{})
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.CacheDir, LedgerFileName)
	}
	if cfg.TelemetryPath == "" {
		cfg.TelemetryPath = filepath.Join(cfg.CacheDir, TelemetryFileName)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.JournalDir == "" {
		errs = append(errs, errors.New("journal_dir must be set"))
	}
	if c.TailInterval <= 0 {
		errs = append(errs, fmt.Errorf("tail_interval must be positive, got %s", c.TailInterval))
	}
	if c.StatusInterval <= 0 {
		errs = append(errs, fmt.Errorf("status_interval must be positive, got %s", c.StatusInterval))
	}
	if c.LineBuffer <= 0 {
		errs = append(errs, fmt.Errorf("line_buffer must be positive, got %d", c.LineBuffer))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
