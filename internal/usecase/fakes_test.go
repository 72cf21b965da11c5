package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/infrastructure/storage"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/progress"
	"DailyDigest/internal/scanner"
)

type fakeFetcher struct {
	name string
	fn   func(day time.Time) (ports.FetchResult, error)

	mu      sync.Mutex
	queried []time.Time
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(_ context.Context, day time.Time) (ports.FetchResult, error) {
	f.mu.Lock()
	f.queried = append(f.queried, day)
	f.mu.Unlock()
	return f.fn(day)
}

func articlesFor(n int, source string, day time.Time) []domain.Article {
	out := make([]domain.Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Article{
			Title:   source + " article",
			Date:    domain.DayKey(day),
			Content: "body",
			URL:     "https://example.org/" + source,
			Source:  source,
		})
	}
	return out
}

type fakeSummarizer struct {
	report     string
	reportErr  error
	posterHTML string
	posterErr  error
	closeErr   error
	testErr    error

	mu          sync.Mutex
	reportCalls int
	closeCalls  int
	gotArticles []domain.Article
}

func (f *fakeSummarizer) GenerateDailyReport(_ context.Context, articles []domain.Article, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	f.gotArticles = articles
	return f.report, f.reportErr
}

func (f *fakeSummarizer) GeneratePosterHTML(context.Context, string, string) (string, error) {
	return f.posterHTML, f.posterErr
}

func (f *fakeSummarizer) TestConnection(context.Context) error { return f.testErr }

func (f *fakeSummarizer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return f.closeErr
}

type fakeRenderer struct {
	err     error
	gotHTML string
}

func (f *fakeRenderer) Render(_ context.Context, html, outPath string) error {
	f.gotHTML = html
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("jpeg"), 0o644)
}

type staticTemplate struct{}

func (staticTemplate) Build(content, day string) (string, error) {
	return "<default>" + day + "</default>", nil
}

type fakePublisher struct {
	mu      sync.Mutex
	reports []string
	posters []string
	err     error
	testErr error
}

func (f *fakePublisher) SendReport(_ context.Context, content, _ string) (domain.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, content)
	if f.err != nil {
		return domain.PublishResult{}, f.err
	}
	return domain.PublishResult{Success: true, Message: "sent"}, nil
}

func (f *fakePublisher) SendPoster(_ context.Context, path, _ string) (domain.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posters = append(f.posters, path)
	if f.err != nil {
		return domain.PublishResult{}, f.err
	}
	return domain.PublishResult{Success: true, Message: "sent"}, nil
}

func (f *fakePublisher) Test(context.Context) error { return f.testErr }

type recorder struct {
	mu       sync.Mutex
	progress []int
	details  []string
}

func (r *recorder) Update(progress int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, progress)
}

func (r *recorder) AppendDetail(lines ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, lines...)
}

type fixture struct {
	pipeline   *Pipeline
	store      *storage.FileStore
	summarizer *fakeSummarizer
	renderer   *fakeRenderer
	publisher  *fakePublisher
	registry   *scanner.Registry
	cfg        config.StorageConfig
}

func newFixture(t *testing.T, fetchers ...ports.SourceFetcher) *fixture {
	t.Helper()

	root := t.TempDir()
	cfg := config.StorageConfig{
		CacheDir:   filepath.Join(root, "cache"),
		ReportsDir: filepath.Join(root, "reports"),
		PostersDir: filepath.Join(root, "posters"),
	}
	store, err := storage.NewFileStore(cfg)
	require.NoError(t, err)

	registry := scanner.NewRegistry()
	for _, f := range fetchers {
		registry.Register(f)
	}

	fx := &fixture{
		store:      store,
		summarizer: &fakeSummarizer{report: "# Daily digest", posterHTML: "<ai/>"},
		renderer:   &fakeRenderer{},
		publisher:  &fakePublisher{},
		registry:   registry,
		cfg:        cfg,
	}
	fx.pipeline = NewPipeline(PipelineDeps{
		Sources:    registry,
		Store:      store,
		Summarizer: fx.summarizer,
		Renderer:   fx.renderer,
		Template:   staticTemplate{},
		Publisher:  fx.publisher,
		Logger:     logging.Discard(),
		Now:        func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) },
	})
	return fx
}

func newTestRunner(t *testing.T) (*Runner, *progress.Tracker) {
	t.Helper()

	tracker := progress.NewTracker()
	runner := NewRunner(tracker, logging.Discard())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Shutdown(ctx)
		tracker.Close()
	})
	return runner, tracker
}

var errBoom = errors.New("boom")
