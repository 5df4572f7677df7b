package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	lperrors "github.com/conneroisu/livepane/internal/errors"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/sandbox"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Preview.Debounce)
	assert.True(t, cfg.Preview.EscapeBoundaries)
	assert.False(t, cfg.Headless.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Headless.Timeout)
	assert.Equal(t, 512*1024, cfg.Limits.MaxBufferBytes)
	assert.Equal(t, "localhost:8080", cfg.Addr())

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, "allow-scripts", policy.Attribute())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".livepane.yml")
	content := `server:
  port: 3000
  host: 0.0.0.0
  allowed_origins: ["http://localhost:5173"]
preview:
  debounce: 400ms
  escape_boundaries: false
  widen:
    - capability: allow-modals
      reason: lesson 4 uses alert()
headless:
  enabled: true
  timeout: 500ms
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 400*time.Millisecond, cfg.Preview.Debounce)
	assert.False(t, cfg.Preview.EscapeBoundaries)
	assert.True(t, cfg.Headless.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Headless.Timeout)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.True(t, policy.Allows(sandbox.AllowModals))
	assert.Equal(t, "lesson 4 uses alert()", policy.Reason(sandbox.AllowModals))

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestCommaSeparatedOrigins(t *testing.T) {
	v := viper.New()
	v.Set("server.allowed_origins", []string{"http://a.test,http://b.test"})

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"port too large", "server.port", 70000},
		{"negative port", "server.port", -1},
		{"dangerous host", "server.host", "localhost;rm -rf"},
		{"wildcard origin", "server.allowed_origins", []string{"*"}},
		{"wildcard subdomain origin", "server.allowed_origins", []string{"https://*.example.com"}},
		{"wildcard port origin", "server.allowed_origins", []string{"http://*:8080"}},
		{"zero debounce", "preview.debounce", "0s"},
		{"huge debounce", "preview.debounce", "1m"},
		{"same origin widen", "preview.widen", []map[string]interface{}{{"capability": "allow-same-origin", "reason": "storage"}}},
		{"widen without reason", "preview.widen", []map[string]interface{}{{"capability": "allow-popups"}}},
		{"unknown capability", "preview.widen", []map[string]interface{}{{"capability": "allow-all", "reason": "x"}}},
		{"negative rate", "limits.edits_per_second", -1},
		{"zero buffer size", "limits.max_buffer_bytes", 0},
		{"zero headless timeout", "headless.timeout", "0s"},
		{"bad log level", "log.level", "loud"},
		{"bad log format", "log.format", "xml"},
		{"undecodable port", "server.port", "not-a-port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, lperrors.IsType(err, lperrors.ErrorTypeConfig))
		})
	}
}
