// Package config loads service configuration from an optional YAML file and
// PLUGREG_-prefixed environment variables, with environment taking
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const envPrefix = "PLUGREG"

// Config is the full service configuration.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// RegistryConfig locates the plugin registry on disk.
type RegistryConfig struct {
	Root     string `mapstructure:"root"`
	Manifest string `mapstructure:"manifest"`
	Watch    bool   `mapstructure:"watch"`
}

// CacheConfig controls manifest cache freshness.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AnalyzerConfig tunes project analysis.
type AnalyzerConfig struct {
	NavFolder string `mapstructure:"nav_folder"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// HTTPConfig configures the optional read-only HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration. cfgFile may be empty, in which case only
// defaults and environment variables apply; a named file that cannot be
// read is an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("registry.root", ".")
	v.SetDefault("registry.manifest", "registry.yaml")
	v.SetDefault("registry.watch", false)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("analyzer.nav_folder", "navfolder")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8080")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Registry.Root == "" {
		return errors.New("registry.root must not be empty")
	}
	if c.Registry.Manifest == "" {
		return errors.New("registry.manifest must not be empty")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return nil
}
