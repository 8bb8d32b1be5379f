package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// Config is the top-level codecoach configuration.
type Config struct {
	Language           string        `mapstructure:"language"`
	UserLevel          string        `mapstructure:"user_level"`
	IncludePerformance bool          `mapstructure:"include_performance"`
	IncludeSecurity    bool          `mapstructure:"include_security"`
	Debounce           time.Duration `mapstructure:"debounce"`
	DBPath             string        `mapstructure:"db_path"`
	User               string        `mapstructure:"user"`
	HistoryWindow      int           `mapstructure:"history_window"`
	RulePacks          []string      `mapstructure:"rule_packs"`
	Cache              Cache         `mapstructure:"cache"`
	Output             Output        `mapstructure:"output"`
	Log                Log           `mapstructure:"log"`
}

// Cache bounds the in-process analysis cache.
type Cache struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Log defines logging preferences.
type Log struct {
	Level string `mapstructure:"level"`
}

// Options converts the analysis settings to engine options.
func (c *Config) Options() analysis.Options {
	level, _ := analysis.ParseUserLevel(c.UserLevel)
	return analysis.Options{
		Language:                   analysis.NormalizeLanguage(c.Language),
		UserLevel:                  level,
		IncludePerformanceAnalysis: c.IncludePerformance,
		IncludeSecurity:            c.IncludeSecurity,
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if _, ok := analysis.ParseUserLevel(c.UserLevel); !ok {
		return fmt.Errorf("unknown user_level %q", c.UserLevel)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %d", c.HistoryWindow)
	}
	return nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. Environment variables
// prefixed with CODECOACH_ override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("language", DefaultLanguage)
	v.SetDefault("user_level", DefaultUserLevel)
	v.SetDefault("include_performance", false)
	v.SetDefault("include_security", false)
	v.SetDefault("debounce", DefaultDebounce)
	v.SetDefault("db_path", filepath.Join(DefaultConfigDir, DefaultDBName))
	v.SetDefault("user", DefaultUser)
	v.SetDefault("history_window", DefaultHistoryWindow)
	v.SetDefault("rule_packs", []string{})
	v.SetDefault("cache.size", DefaultCache.Size)
	v.SetDefault("cache.ttl", DefaultCache.TTL)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("log.level", DefaultLog.Level)

	v.SetEnvPrefix("codecoach")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// A missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	for i, p := range cfg.RulePacks {
		cfg.RulePacks[i] = expandPath(p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
