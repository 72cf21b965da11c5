package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{configPathEnv, addrEnv, logLevelEnv, envFileEnv, DeepSeekAPIKeyEnv, DeepSeekModelEnv, DeepSeekURLEnv, WebhookURLEnv} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "deepseek-chat", cfg.DeepSeek.Model)
	assert.True(t, cfg.Storage.CacheEnabled)
	assert.True(t, cfg.Poster.Enabled)
	assert.Equal(t, []string{"tencent", "aibase"}, cfg.Scheduler.Sources)
	assert.NotNil(t, cfg.Scheduler.Location())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  addr: ":8080"
storage:
  cacheDir: /tmp/digest/cache
  cacheEnabled: false
poster:
  enabled: false
  quality: 500
scheduler:
  enabled: true
  runAt: "07:15"
  timezone: Not/AZone
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	t.Setenv(configPathEnv, path)
	t.Setenv(DeepSeekAPIKeyEnv, "sk-test")
	t.Setenv(WebhookURLEnv, "https://hook.example/robot")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/tmp/digest/cache", cfg.Storage.CacheDir)
	assert.Equal(t, "data/reports", cfg.Storage.ReportsDir)
	assert.False(t, cfg.Storage.CacheEnabled)
	assert.False(t, cfg.Poster.Enabled)
	assert.Equal(t, 90, cfg.Poster.Quality)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "07:15", cfg.Scheduler.RunAt)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
	assert.Equal(t, "sk-test", cfg.DeepSeek.APIKey)
	assert.Equal(t, "https://hook.example/robot", cfg.Webhook.URL)
}

func TestLoadUnreadableFileFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	assert.Equal(t, defaultConfig().Server.Addr, cfg.Server.Addr)
}
