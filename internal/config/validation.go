package config

import (
	"fmt"
	"time"

	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/validation"
)

const maxDebounce = 10 * time.Second

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validatePreviewConfig(config); err != nil {
		return fmt.Errorf("preview config: %w", err)
	}
	if err := validateLimitsConfig(&config.Limits); err != nil {
		return fmt.Errorf("limits config: %w", err)
	}
	if config.Headless.Timeout <= 0 {
		return fmt.Errorf("headless config: timeout must be positive, got %s", config.Headless.Timeout)
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log config: format must be text or json, got %q", config.Log.Format)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		return err
	}

	for _, origin := range config.AllowedOrigins {
		if _, err := validation.ParseOrigin(origin); err != nil {
			return fmt.Errorf("allowed origin: %w", err)
		}
	}
	return nil
}

func validatePreviewConfig(config *Config) error {
	if config.Preview.Debounce <= 0 || config.Preview.Debounce > maxDebounce {
		return fmt.Errorf("debounce %s must be within (0, %s]", config.Preview.Debounce, maxDebounce)
	}
	if _, err := config.Policy(); err != nil {
		return err
	}
	return nil
}

func validateLimitsConfig(config *LimitsConfig) error {
	if config.EditsPerSecond < 0 {
		return fmt.Errorf("edits_per_second must not be negative")
	}
	if config.Burst < 0 {
		return fmt.Errorf("burst must not be negative")
	}
	if config.MaxBufferBytes <= 0 {
		return fmt.Errorf("max_buffer_bytes must be positive")
	}
	return nil
}
