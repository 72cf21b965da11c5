package ports

import (
	"context"
	"time"

	"DailyDigest/internal/domain"
)

// FetchResult carries the articles of one source plus non-fatal errors it hit along the way.
type FetchResult struct {
	Articles []domain.Article
	Errors   []string
}

// SourceFetcher pulls the articles a single source published on a day.
type SourceFetcher interface {
	Name() string
	Fetch(ctx context.Context, day time.Time) (FetchResult, error)
}

// Summarizer is the language-model collaborator.
type Summarizer interface {
	GenerateDailyReport(ctx context.Context, articles []domain.Article, day string) (string, error)
	GeneratePosterHTML(ctx context.Context, content, day string) (string, error)
	TestConnection(ctx context.Context) error
	Close() error
}

// Renderer turns poster markup into an image at outPath.
type Renderer interface {
	Render(ctx context.Context, html, outPath string) error
}

// PosterTemplate builds the built-in poster markup for a report.
type PosterTemplate interface {
	Build(content, day string) (string, error)
}

// Publisher delivers digests to the team channel.
type Publisher interface {
	SendReport(ctx context.Context, content, day string) (domain.PublishResult, error)
	SendPoster(ctx context.Context, imagePath, day string) (domain.PublishResult, error)
	Test(ctx context.Context) error
}

// ArtifactStore persists date-keyed artifacts on the local filesystem.
type ArtifactStore interface {
	WriteArticles(set domain.CachedArticleSet) (string, error)
	ReadArticles(day string) (domain.CachedArticleSet, error)
	WriteReport(report domain.Report) (domain.ReportFiles, error)
	ReadReport(day string) (domain.Report, error)
	PosterPath(day string) string
	ResolvePoster(name string) (string, error)
	List() (domain.FileListing, error)
	Locate(name string) (string, error)
}

// Credentials exposes secrets that can change while the process runs.
type Credentials interface {
	DeepSeekAPIKey() string
	WebhookURL() string
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
