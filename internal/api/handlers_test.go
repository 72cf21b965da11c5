package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/infrastructure/envstore"
	"DailyDigest/internal/infrastructure/storage"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/progress"
	"DailyDigest/internal/scanner"
	"DailyDigest/internal/usecase"
)

type gatedFetcher struct {
	name    string
	release chan struct{}
	once    sync.Once
}

func newGatedFetcher(name string, open bool) *gatedFetcher {
	f := &gatedFetcher{name: name, release: make(chan struct{})}
	if open {
		f.open()
	}
	return f
}

func (f *gatedFetcher) open() { f.once.Do(func() { close(f.release) }) }

func (f *gatedFetcher) Name() string { return f.name }

func (f *gatedFetcher) Fetch(ctx context.Context, day time.Time) (ports.FetchResult, error) {
	select {
	case <-f.release:
	case <-ctx.Done():
		return ports.FetchResult{}, ctx.Err()
	}
	return ports.FetchResult{Articles: []domain.Article{{
		Title:   f.name + " headline",
		Content: "body",
		URL:     "https://example.org/" + f.name,
	}}}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) GenerateDailyReport(context.Context, []domain.Article, string) (string, error) {
	return "# AI Daily\n\n- headline", nil
}

func (stubSummarizer) GeneratePosterHTML(context.Context, string, string) (string, error) {
	return "<html><body>ai</body></html>", nil
}

func (stubSummarizer) TestConnection(context.Context) error { return nil }

func (stubSummarizer) Close() error { return nil }

type fileRenderer struct{}

func (fileRenderer) Render(_ context.Context, _ string, outPath string) error {
	return os.WriteFile(outPath, []byte("jpeg"), 0o644)
}

type plainTemplate struct{}

func (plainTemplate) Build(content, day string) (string, error) {
	return "<html>" + day + "</html>", nil
}

type stubPublisher struct {
	mu      sync.Mutex
	reports int
	posters int
}

func (p *stubPublisher) SendReport(context.Context, string, string) (domain.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports++
	return domain.PublishResult{Success: true, Message: "report sent"}, nil
}

func (p *stubPublisher) SendPoster(context.Context, string, string) (domain.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posters++
	return domain.PublishResult{Success: true, Message: "poster sent"}, nil
}

func (p *stubPublisher) Test(context.Context) error { return nil }

type testServer struct {
	router    http.Handler
	runner    *usecase.Runner
	store     *storage.FileStore
	secrets   *envstore.Store
	publisher *stubPublisher
	fetcher   *gatedFetcher
}

func newTestServer(t *testing.T, gateOpen bool) *testServer {
	t.Helper()

	root := t.TempDir()
	store, err := storage.NewFileStore(config.StorageConfig{
		CacheDir:   filepath.Join(root, "cache"),
		ReportsDir: filepath.Join(root, "reports"),
		PostersDir: filepath.Join(root, "posters"),
	})
	require.NoError(t, err)

	secrets, err := envstore.Open(filepath.Join(root, ".env"))
	require.NoError(t, err)

	fetcher := newGatedFetcher(scanner.SourceTencent, gateOpen)
	registry := scanner.NewRegistry()
	registry.Register(fetcher)

	publisher := &stubPublisher{}
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:    registry,
		Store:      store,
		Summarizer: stubSummarizer{},
		Renderer:   fileRenderer{},
		Template:   plainTemplate{},
		Publisher:  publisher,
		Logger:     logging.Discard(),
		Now:        func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) },
	})

	tracker := progress.NewTracker()
	runner := usecase.NewRunner(tracker, logging.Discard())
	t.Cleanup(func() {
		fetcher.open()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Shutdown(ctx)
		tracker.Close()
	})

	handler := NewHandler(HandlerDeps{
		Runner:       runner,
		Pipeline:     pipeline,
		Store:        store,
		Secrets:      secrets,
		Settings:     Settings{CacheEnabled: true, ImageEnabled: true, Location: time.UTC},
		Logger:       logging.Discard(),
		PollInterval: 10 * time.Millisecond,
	})

	return &testServer{
		router:    NewRouter(handler),
		runner:    runner,
		store:     store,
		secrets:   secrets,
		publisher: publisher,
		fetcher:   fetcher,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.runner.Busy() }, 5*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)
	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestCrawlRejectsConcurrentJobs(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/api/crawl", map[string]any{"date": "2025-01-10", "sources": []string{"tencent"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["run_id"])

	rec = srv.do(t, http.MethodPost, "/api/crawl", map[string]any{"date": "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "already running")

	rec = srv.do(t, http.MethodPost, "/api/pipeline", map[string]any{"date": "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/progress", nil)
	assert.Equal(t, string(domain.JobRunning), decodeBody(t, rec)["status"])

	srv.fetcher.open()
	srv.waitIdle(t)

	rec = srv.do(t, http.MethodGet, "/api/progress", nil)
	snap := decodeBody(t, rec)
	assert.Equal(t, string(domain.JobCompleted), snap["status"])
	assert.EqualValues(t, 100, snap["progress"])
	result, ok := snap["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(domain.KindCrawl), result["kind"])

	set, err := srv.store.ReadArticles("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, set.Total)
}

func TestCrawlRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)

	cases := map[string]any{
		"bad date":       map[string]any{"date": "10/01/2025"},
		"unknown source": map[string]any{"sources": []string{"hackernews"}},
		"malformed body": "{not json",
	}
	for name, body := range cases {
		rec := srv.do(t, http.MethodPost, "/api/crawl", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Equal(t, false, decodeBody(t, rec)["success"], name)
	}
	assert.False(t, srv.runner.Busy())
}

func TestGenerateReportWithoutArticles(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/generate_report", map[string]any{"date": "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "no articles")

	rec = srv.do(t, http.MethodGet, "/api/progress", nil)
	assert.Equal(t, string(domain.JobIdle), decodeBody(t, rec)["status"])
}

func TestGenerateReportFromCache(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)
	_, err := srv.store.WriteArticles(domain.NewCachedArticleSet("2025-01-10", []domain.Article{{Title: "cached"}}, time.Now()))
	require.NoError(t, err)

	rec := srv.do(t, http.MethodPost, "/api/generate_report", map[string]any{"date": "2025-01-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	report, ok := body["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "# AI Daily\n\n- headline", report["content"])

	files, ok := body["files"].(map[string]any)
	require.True(t, ok)
	assert.FileExists(t, files["markdown"].(string))
	assert.FileExists(t, files["json"].(string))
}

func TestSaveReport(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/save_report", map[string]any{"content": "  ", "date": "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/save_report", map[string]any{"content": "edited", "date": "2025-01-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report, err := srv.store.ReadReport("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "edited", report.Content)
	assert.True(t, report.Edited)
}

func TestGenerateAndSendPoster(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/generate_poster", map[string]any{"content": "", "date": "2025-01-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/generate_poster", map[string]any{"content": "# AI Daily", "date": "2025-01-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, string(domain.TemplateDefault), body["html_source"])
	path, _ := body["path"].(string)
	assert.FileExists(t, path)

	rec = srv.do(t, http.MethodPost, "/api/send_poster", map[string]any{"image_path": filepath.Base(path), "date": "2025-01-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody(t, rec)["success"])
	assert.Equal(t, 1, srv.publisher.posters)

	rec = srv.do(t, http.MethodPost, "/api/send_poster", map[string]any{"image_path": "missing.jpg"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "does not exist")
}

func TestSendReport(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/send_report", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/send_report", map[string]any{"content": "# AI Daily"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "report sent", decodeBody(t, rec)["message"])
	assert.Equal(t, 1, srv.publisher.reports)
}

func TestFilesListingAndDownload(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)
	rec := srv.do(t, http.MethodPost, "/api/save_report", map[string]any{"content": "edited", "date": "2025-01-10"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/list_files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing domain.FileListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Reports, 2)
	assert.Empty(t, listing.Posters)

	rec = srv.do(t, http.MethodGet, "/api/files/report_20250110.md", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = srv.do(t, http.MethodGet, "/api/files/nothing.md", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)
	require.NoError(t, srv.secrets.Update(map[string]string{
		config.DeepSeekAPIKeyEnv: "sk-abcdef123456",
		config.WebhookURLEnv:     "https://hook.example/robot?key=1",
	}))

	rec := srv.do(t, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["deepseek_configured"])
	assert.Equal(t, true, body["image_enabled"])

	rec = srv.do(t, http.MethodGet, "/api/config/details", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decodeBody(t, rec)
	shown, ok := details["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***********3456", shown["deepseek_api_key"])

	rec = srv.do(t, http.MethodPost, "/api/config/save", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/config/save", map[string]any{"deepseek_api_key": shown["deepseek_api_key"]})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/config/save", map[string]any{"deepseek_api_key": "sk-new"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sk-new", srv.secrets.DeepSeekAPIKey())
}

func TestTestConnections(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/test_connections", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	results, ok := decodeBody(t, rec)["results"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, results, 3)
	for name, raw := range results {
		check, ok := raw.(map[string]any)
		require.True(t, ok, name)
		assert.Equal(t, true, check["success"], name)
	}
}

func TestProgressStreamEndsWhenJobStops(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/api/progress/stream", nil)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "data: "))

	rec = srv.do(t, http.MethodPost, "/api/crawl", map[string]any{"date": "2025-01-10"})
	require.Equal(t, http.StatusOK, rec.Code)

	go func() {
		time.Sleep(50 * time.Millisecond)
		srv.fetcher.open()
	}()

	rec = srv.do(t, http.MethodGet, "/api/progress/stream", nil)
	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.GreaterOrEqual(t, len(events), 2)
	assert.Contains(t, events[0], `"status":"running"`)
	assert.Contains(t, events[len(events)-1], `"status":"completed"`)
}

func TestTrackedRoutesRejectWhileJobActive(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/api/crawl", map[string]any{"date": "2025-01-10", "sources": []string{"tencent"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	requests := map[string]any{
		"/api/test_connections": nil,
		"/api/generate_report": map[string]any{
			"date":     "2025-01-10",
			"articles": []map[string]any{{"title": "inline"}},
		},
		"/api/generate_poster": map[string]any{"date": "2025-01-10", "content": "# AI Daily"},
	}
	for path, body := range requests {
		rec := srv.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, decodeBody(t, rec)["error"], "already running", path)
	}

	srv.fetcher.open()
	srv.waitIdle(t)

	rec = srv.do(t, http.MethodGet, "/api/progress", nil)
	result, ok := decodeBody(t, rec)["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(domain.KindCrawl), result["kind"])
}
