package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"no commit", BuildInfo{Version: "dev", GitCommit: "unknown"}, "dev"},
		{"release", BuildInfo{Version: "v0.3.0", GitCommit: "1a2b3c4d5e6f"}, "v0.3.0 (1a2b3c4)"},
		{"dirty", BuildInfo{Version: "dev", GitCommit: "1a2b3c4d5e6f", Dirty: true}, "dev (1a2b3c4-dirty)"},
		{"short commit", BuildInfo{Version: "v1.0.0", GitCommit: "abc"}, "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.Short())
		})
	}
}

func TestDetailed(t *testing.T) {
	info := BuildInfo{
		Version:   "v0.3.0",
		GitCommit: "1a2b3c4",
		BuildTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "Version: v0.3.0\nCommit: 1a2b3c4\nBuilt: 2026-01-02T03:04:05Z\nGo: go1.24.4\nPlatform: linux/amd64", info.Detailed())
}

func TestIsRelease(t *testing.T) {
	assert.True(t, BuildInfo{Version: "v0.3.0"}.IsRelease())
	assert.False(t, BuildInfo{Version: "dev"}.IsRelease())
	assert.False(t, BuildInfo{Version: "dev-1a2b3c4"}.IsRelease())
}

func TestParseBuildTime(t *testing.T) {
	assert.True(t, parseBuildTime("unknown").IsZero())
	assert.True(t, parseBuildTime("yesterday").IsZero())
	assert.Equal(t, 2026, parseBuildTime("2026-03-01T10:00:00Z").Year())
	assert.Equal(t, 2026, parseBuildTime("2026-03-01 10:00:00").Year())
}

func TestGetFillsRuntimeFields(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
