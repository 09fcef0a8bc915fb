// Package config loads quotesync settings from flags, environment, and an
// optional quotesync.yaml file.
//
// Precedence, highest first: flags bound with BindFlags, QUOTESYNC_*
// environment variables, the config file, defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment variables (QUOTESYNC_REMOTE_ENDPOINT).
	EnvPrefix = "quotesync"

	// FileName is the config file base name, searched without extension.
	FileName = "quotesync"

	// DBFile is the database file name inside the data directory.
	DBFile = "quotesync.db"

	DefaultEndpoint = "https://jsonplaceholder.typicode.com/posts"
)

// Config is the resolved configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Inbox     InboxConfig     `mapstructure:"inbox"`
	Log       LogConfig       `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type RemoteConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	FetchLimit      int           `mapstructure:"fetch_limit"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	PushConcurrency int           `mapstructure:"push_concurrency"`
}

type SyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

type InboxConfig struct {
	// Dir is watched for dropped import files. Empty disables the watcher.
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DBPath returns the database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFile)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	u, err := url.Parse(c.Remote.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote.endpoint must be an http(s) URL, got %q", c.Remote.Endpoint)
	}
	if c.Remote.FetchLimit <= 0 {
		return fmt.Errorf("remote.fetch_limit must be positive, got %d", c.Remote.FetchLimit)
	}
	if c.Remote.RequestTimeout <= 0 {
		return fmt.Errorf("remote.request_timeout must be positive, got %s", c.Remote.RequestTimeout)
	}
	if c.Remote.PushConcurrency <= 0 {
		return fmt.Errorf("remote.push_concurrency must be positive, got %d", c.Remote.PushConcurrency)
	}
	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync.interval must be at least 1s, got %s", c.Sync.Interval)
	}
	if c.Sync.SettleDelay < 0 {
		return fmt.Errorf("sync.settle_delay cannot be negative")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	return nil
}

// DefaultDataDir is ~/.quotesync, or ./.quotesync when no home is known.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quotesync"
	}
	return filepath.Join(home, ".quotesync")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("remote.endpoint", DefaultEndpoint)
	v.SetDefault("remote.fetch_limit", 10)
	v.SetDefault("remote.request_timeout", 10*time.Second)
	v.SetDefault("remote.push_concurrency", 4)
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.settle_delay", 3*time.Second)
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("inbox.dir", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "warn")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds flags to config keys. Only flags the user set override
// lower layers.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q for key %s", name, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file and resolves the configuration.
func Load(v *viper.Viper) (*Config, error) {
	dataDir := v.GetString("data_dir")

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "quotesync"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.Inbox.Dir != "" && !filepath.IsAbs(cfg.Inbox.Dir) {
		cfg.Inbox.Dir = filepath.Join(cfg.DataDir, cfg.Inbox.Dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
