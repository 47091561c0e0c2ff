package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/toolmemo/cache"
	"github.com/jonwraymond/toolmemo/observe"
)

// EnvPrefix prefixes every environment variable the CLI reads, for example
// TOOLMEMO_CACHE_TTL for cache.ttl.
const EnvPrefix = "TOOLMEMO"

// Config is the CLI configuration, read from an optional config file and the
// environment.
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CacheConfig bounds the digest cache.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

// RetryConfig controls retries of failed digests.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string     `mapstructure:"addr"`
	Root string     `mapstructure:"root"`
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig enables bearer token checks on /digest. JWKSURL takes
// precedence over HMACSecret; with neither set the endpoint is open.
type AuthConfig struct {
	JWKSURL string `mapstructure:"jwks_url"`
	// HMACSecret may be a secret reference such as "secretref:env:NAME".
	HMACSecret string `mapstructure:"hmac_secret"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// newViper returns a viper instance with defaults and environment binding.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := cache.DefaultConfig()
	v.SetDefault("cache.ttl", defaults.TTL)
	v.SetDefault("cache.max_size", defaults.MaxSize)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", 100*time.Millisecond)
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.root", ".")
	v.SetDefault("serve.auth.jwks_url", "")
	v.SetDefault("serve.auth.hmac_secret", "")
	v.SetDefault("serve.auth.issuer", "")
	v.SetDefault("serve.auth.audience", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.sample_pct", 1.0)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.exporter", "none")
	return v
}

// loadConfig reads path, or ./toolmemo.{yaml,json,toml} when path is empty,
// and overlays the environment. A missing default file is not an error.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("toolmemo")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cache and observability settings.
func (c Config) Validate() error {
	if err := c.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry: max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	obs := c.Observe("")
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	return nil
}

// CacheConfig returns the store configuration for memoized digests.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{TTL: c.Cache.TTL, MaxSize: c.Cache.MaxSize}
}

// Observe returns the telemetry configuration.
func (c Config) Observe(version string) observe.Config {
	return observe.Config{
		ServiceName: "toolmemo",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Tracing.Enabled,
			Exporter:  c.Tracing.Exporter,
			SamplePct: c.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Metrics.Enabled,
			Exporter: c.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Log.Level != "off",
			Level:   c.Log.Level,
			Format:  c.Log.Format,
		},
	}
}
