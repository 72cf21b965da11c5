package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/config"
	"DailyDigest/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	root := t.TempDir()
	return config.Config{
		Server:  config.ServerConfig{Addr: "127.0.0.1:0"},
		Logging: config.LoggingConfig{Level: "error"},
		Storage: config.StorageConfig{
			CacheDir:     filepath.Join(root, "cache"),
			ReportsDir:   filepath.Join(root, "reports"),
			PostersDir:   filepath.Join(root, "posters"),
			CacheEnabled: true,
		},
		DeepSeek:  config.DeepSeekConfig{Endpoint: "http://127.0.0.1:0", Model: "deepseek-chat", TimeoutSeconds: 1},
		Webhook:   config.WebhookConfig{TimeoutSeconds: 1},
		Poster:    config.PosterConfig{Enabled: false},
		Scheduler: config.SchedulerConfig{Enabled: true, RunAt: "08:30", Timezone: "UTC"},
		EnvFile:   filepath.Join(root, ".env"),
	}
}

func TestNewWiresRouter(t *testing.T) {
	t.Parallel()

	application, err := New(testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Close(ctx)
	})

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["cache_enabled"])
	assert.False(t, body["image_enabled"])

	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/list_files", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsBadRunTime(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scheduler.RunAt = "25:99"

	_, err := New(cfg, logging.Discard())
	assert.Error(t, err)
}

func TestRunRejectsInvalidDate(t *testing.T) {
	t.Parallel()

	application, err := New(testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Close(ctx)
	})

	_, err = application.Run(context.Background(), RunRequest{Date: "2025/01/10"})
	assert.Error(t, err)
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	application, err := New(testConfig(t), logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestServeReportsListenFailure(t *testing.T) {
	t.Parallel()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	cfg := testConfig(t)
	cfg.Server.Addr = busy.Addr().String()
	application, err := New(cfg, logging.Discard())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- application.Serve(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "http server")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return on listen failure")
	}
}
