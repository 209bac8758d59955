// Package config loads warden configuration from defaults, an optional YAML
// file and WARDEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides (WARDEN_LOG_LEVEL).
const EnvPrefix = "WARDEN"

// Config is the root configuration structure.
type Config struct {
	AWS        AWSConfig        `mapstructure:"aws" yaml:"aws"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" yaml:"scheduler"`
	Versioning VersioningConfig `mapstructure:"versioning" yaml:"versioning"`
	Daemon     DaemonConfig     `mapstructure:"daemon" yaml:"daemon"`
	OTEL       OTELConfig       `mapstructure:"otel" yaml:"otel"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	Region          string `mapstructure:"region" yaml:"region"`
	Profile         string `mapstructure:"profile" yaml:"profile"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// SchedulerConfig controls the instance pass.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	DryRun  bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// VersioningConfig controls the bucket pass.
type VersioningConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	BucketPrefix string `mapstructure:"bucket_prefix" yaml:"bucket_prefix"`
	DryRun       bool   `mapstructure:"dry_run" yaml:"dry_run"`
}

// DaemonConfig holds settings for `warden daemon`.
type DaemonConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MetricsAddr string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool          `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string        `mapstructure:"service_name" yaml:"service_name"`
	Traces      TracesConfig  `mapstructure:"traces" yaml:"traces"`
	Metrics     MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.dry_run", false)

	v.SetDefault("versioning.enabled", true)
	v.SetDefault("versioning.bucket_prefix", "yasinh-")
	v.SetDefault("versioning.dry_run", false)

	v.SetDefault("daemon.interval", "1h")
	v.SetDefault("daemon.metrics_addr", ":2112")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.service_name", "warden")
	v.SetDefault("otel.traces.enabled", false)
	v.SetDefault("otel.traces.sample_rate", 1.0)
	v.SetDefault("otel.metrics.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", FormatJSON)
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	// defaults always decode
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if (c.AWS.AccessKeyID != "") != (c.AWS.SecretAccessKey != "") {
		errs = append(errs, errors.New("aws: access_key_id and secret_access_key must be set together"))
	}
	if c.Versioning.Enabled && c.Versioning.BucketPrefix == "" {
		errs = append(errs, errors.New("versioning: bucket_prefix must not be empty"))
	}
	if c.Daemon.Interval <= 0 {
		errs = append(errs, fmt.Errorf("daemon: interval must be positive (got %s)", c.Daemon.Interval))
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		errs = append(errs, fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		errs = append(errs, fmt.Errorf("log: unknown level %q", c.Log.Level))
	}
	if c.Log.Format != FormatJSON && c.Log.Format != FormatConsole {
		errs = append(errs, fmt.Errorf("log: format must be %q or %q (got %q)", FormatJSON, FormatConsole, c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// YAML renders the effective configuration. The secret access key is masked.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.AWS.SecretAccessKey != "" {
		out.AWS.SecretAccessKey = "********"
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
