// Package config provides configuration management for livepane using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the LIVEPANE_ prefix, and validation. It covers the preview
// server, the debounce window and sandbox policy of each engine, the seed
// exercise, the optional headless surface, edit limits and logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	lperrors "github.com/conneroisu/livepane/internal/errors"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/sandbox"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Preview  PreviewConfig  `mapstructure:"preview" yaml:"preview"`
	Exercise ExerciseConfig `mapstructure:"exercise" yaml:"exercise"`
	Headless HeadlessConfig `mapstructure:"headless" yaml:"headless"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type PreviewConfig struct {
	Debounce         time.Duration `mapstructure:"debounce" yaml:"debounce"`
	EscapeBoundaries bool          `mapstructure:"escape_boundaries" yaml:"escape_boundaries"`
	Widen            []WidenRule   `mapstructure:"widen" yaml:"widen"`
}

// WidenRule grants one extra sandbox capability for a documented reason.
type WidenRule struct {
	Capability string `mapstructure:"capability" yaml:"capability"`
	Reason     string `mapstructure:"reason" yaml:"reason"`
}

type ExerciseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type HeadlessConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LimitsConfig struct {
	EditsPerSecond float64 `mapstructure:"edits_per_second" yaml:"edits_per_second"`
	Burst          int     `mapstructure:"burst" yaml:"burst"`
	MaxBufferBytes int     `mapstructure:"max_buffer_bytes" yaml:"max_buffer_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("preview.debounce", 250*time.Millisecond)
	v.SetDefault("preview.escape_boundaries", true)
	v.SetDefault("exercise.path", "")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.timeout", 2*time.Second)
	v.SetDefault("limits.edits_per_second", 30.0)
	v.SetDefault("limits.burst", 60)
	v.SetDefault("limits.max_buffer_bytes", 512*1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, lperrors.NewConfigError(lperrors.ErrCodeConfigInvalid, "decoding configuration", err)
	}

	// Comma separated env values arrive as a single element.
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = strings.Split(config.Server.AllowedOrigins[0], ",")
	}

	if err := validateConfig(&config); err != nil {
		return nil, lperrors.NewConfigError(lperrors.ErrCodeConfigInvalid, "invalid configuration", err)
	}

	return &config, nil
}

// Policy builds the sandbox policy from the default plus the widen rules.
func (c *Config) Policy() (sandbox.Policy, error) {
	policy := sandbox.DefaultPolicy()
	for _, rule := range c.Preview.Widen {
		capability, err := sandbox.ParseCapability(rule.Capability)
		if err != nil {
			return sandbox.DefaultPolicy(), err
		}
		policy, err = policy.Widen(capability, rule.Reason)
		if err != nil {
			return sandbox.DefaultPolicy(), err
		}
	}
	return policy, nil
}

// LoggerConfig translates the log section.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Log.Format
	return lc
}

// Addr returns the listen address of the preview server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
