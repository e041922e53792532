package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorConfigGetAutoExpandDelay(t *testing.T) {
	tests := []struct {
		name     string
		delay    string
		expected time.Duration
	}{
		{"empty", "", 500 * time.Millisecond},
		{"invalid", "soon", 500 * time.Millisecond},
		{"negative", "-1s", 500 * time.Millisecond},
		{"quarter second", "250ms", 250 * time.Millisecond},
		{"one second", "1s", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EditorConfig{AutoExpandDelay: tt.delay}
			if got := cfg.GetAutoExpandDelay(); got != tt.expected {
				t.Errorf("GetAutoExpandDelay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEditorConfigGetHistoryLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"unset", 0, 100},
		{"negative", -5, 100},
		{"explicit", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EditorConfig{HistoryLimit: tt.limit}
			if got := cfg.GetHistoryLimit(); got != tt.expected {
				t.Errorf("GetHistoryLimit() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAPIConfigDefaults(t *testing.T) {
	var nilAPI *APIConfig
	assert.Nil(t, nilAPI.GetCORSOrigins())
	assert.Equal(t, 10.0, nilAPI.GetRateLimitRPS())
	assert.Equal(t, 20, nilAPI.GetRateLimitBurst())

	api := &APIConfig{
		CORS:      &CORSConfig{Origins: []string{"*"}},
		RateLimit: &RateLimitConfig{RequestsPerSecond: 2.5, Burst: 4},
	}
	assert.Equal(t, []string{"*"}, api.GetCORSOrigins())
	assert.Equal(t, 2.5, api.GetRateLimitRPS())
	assert.Equal(t, 4, api.GetRateLimitBurst())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9000
editor:
  history_limit: 10
presets:
  dir: presets
log:
  format: json
api:
  rate_limit:
    requests_per_second: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, 10, cfg.Editor.GetHistoryLimit())
	assert.Equal(t, 500*time.Millisecond, cfg.Editor.GetAutoExpandDelay())
	assert.Equal(t, filepath.Join(dir, "presets"), cfg.Presets.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5.0, cfg.API.GetRateLimitRPS())
	assert.Equal(t, 20, cfg.API.GetRateLimitBurst())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad yaml", "server: [", "failed to parse"},
		{"port range", "server:\n  port: 70000\n", "out of range"},
		{"bad delay", "editor:\n  auto_expand_delay: soon\n", "auto_expand_delay"},
		{"watch without dir", "presets:\n  watch: true\n", "requires presets.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := DefaultConfig()
	cfg.Server.Port = 3000
	cfg.Presets.Dir = "/srv/presets"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3000, loaded.Server.Port)
	assert.Equal(t, "/srv/presets", loaded.Presets.Dir)
	assert.Equal(t, "localhost:3000", loaded.Server.Addr())
}
