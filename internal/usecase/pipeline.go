package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/scanner"
)

// maxSourceErrors caps how many non-fatal errors of one source reach the job details.
const maxSourceErrors = 3

// sourceLag shifts the query day of sources whose listing for D describes D-n.
var sourceLag = map[string]int{
	scanner.SourceAIBase: 1,
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources    *scanner.Registry
	Store      ports.ArtifactStore
	Summarizer ports.Summarizer
	Renderer   ports.Renderer
	Template   ports.PosterTemplate
	Publisher  ports.Publisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline implements the scrape, cache, summarize, render and distribute stages.
type Pipeline struct {
	sources    *scanner.Registry
	store      ports.ArtifactStore
	summarizer ports.Summarizer
	renderer   ports.Renderer
	template   ports.PosterTemplate
	publisher  ports.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		sources:    deps.Sources,
		store:      deps.Store,
		summarizer: deps.Summarizer,
		renderer:   deps.Renderer,
		template:   deps.Template,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if p.sources == nil {
		p.sources = scanner.NewRegistry()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// QueryDay applies the fixed per-source date shift.
func QueryDay(source string, day time.Time) time.Time {
	return day.AddDate(0, 0, -sourceLag[source])
}

// Scrape fetches every requested source independently. Source failures land in the
// job details and never abort the other sources. Progress moves from `from` towards `to`.
func (p *Pipeline) Scrape(ctx context.Context, day time.Time, sources []string, rep Reporter, from, to int) []domain.Article {
	sources = uniqueSources(sources)
	all := make([]domain.Article, 0)

	for i, name := range sources {
		rep.Update(from+(to-from)*i/len(sources), fmt.Sprintf("Fetching %s...", name))

		fetcher, err := p.sources.Resolve(name)
		if err != nil {
			rep.AppendDetail(fmt.Sprintf("%s: skipped, %v", name, err))
			continue
		}

		queryDay := QueryDay(name, day)
		if !queryDay.Equal(day) {
			rep.AppendDetail(fmt.Sprintf("%s query date: %s (%d day(s) before %s)",
				name, domain.DayKey(queryDay), sourceLag[name], domain.DayKey(day)))
		}

		result, err := fetcher.Fetch(ctx, queryDay)
		if err != nil {
			p.logger.Warn("source fetch failed", "source", name, "error", err)
			rep.AppendDetail(fmt.Sprintf("%s fetch failed: %v", name, err))
			continue
		}

		for _, article := range result.Articles {
			all = append(all, article.Normalize(domain.DayKey(queryDay), name))
		}
		rep.AppendDetail(fmt.Sprintf("%s: fetched %d articles", name, len(result.Articles)))

		errs := result.Errors
		if len(errs) > maxSourceErrors {
			errs = errs[:maxSourceErrors]
		}
		for _, msg := range errs {
			rep.AppendDetail(fmt.Sprintf("%s error: %s", name, msg))
		}
	}

	return all
}

// Cache persists the scrape output for day, replacing any earlier set.
func (p *Pipeline) Cache(day string, articles []domain.Article) (string, error) {
	path, err := p.store.WriteArticles(domain.NewCachedArticleSet(day, articles, p.now()))
	if err != nil {
		return "", fmt.Errorf("cache articles: %w", err)
	}
	return path, nil
}

// ResolveArticles returns the supplied articles or, when empty, the cached set for day.
func (p *Pipeline) ResolveArticles(day string, articles []domain.Article) ([]domain.Article, error) {
	if len(articles) > 0 {
		return articles, nil
	}
	set, err := p.store.ReadArticles(day)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return nil, domain.ErrNoArticles
	}
	if err != nil {
		return nil, err
	}
	if len(set.Articles) == 0 {
		return nil, domain.ErrNoArticles
	}
	return set.Articles, nil
}

// Summarize asks the language model for the digest and persists it. Nothing is written on failure.
func (p *Pipeline) Summarize(ctx context.Context, day string, articles []domain.Article) (domain.ReportResult, error) {
	articles, err := p.ResolveArticles(day, articles)
	if err != nil {
		return domain.ReportResult{}, err
	}
	if p.summarizer == nil {
		return domain.ReportResult{}, domain.NewStageError("summarize", errors.New("summarizer is not configured"))
	}

	content, err := p.summarizer.GenerateDailyReport(ctx, articles, day)
	if err != nil {
		return domain.ReportResult{}, domain.NewStageError("summarize", err)
	}
	if strings.TrimSpace(content) == "" {
		return domain.ReportResult{}, domain.NewStageError("summarize", errors.New("language model returned an empty report"))
	}

	report := domain.Report{
		Content:   content,
		Date:      day,
		Timestamp: p.now(),
		Success:   true,
	}
	files, err := p.store.WriteReport(report)
	if err != nil {
		return domain.ReportResult{}, fmt.Errorf("persist report: %w", err)
	}

	return domain.ReportResult{Report: report, Files: files}, nil
}

// SaveEdited overwrites the report for day with user-edited content.
func (p *Pipeline) SaveEdited(day, content string) (domain.ReportFiles, error) {
	if strings.TrimSpace(content) == "" {
		return domain.ReportFiles{}, domain.ErrEmptyContent
	}
	files, err := p.store.WriteReport(domain.Report{
		Content:   content,
		Date:      day,
		Timestamp: p.now(),
		Edited:    true,
		Success:   true,
	})
	if err != nil {
		return domain.ReportFiles{}, fmt.Errorf("persist edited report: %w", err)
	}
	return files, nil
}

// PosterRequest describes one render.
type PosterRequest struct {
	Day        string
	Content    string
	CustomHTML string
	UseAI      bool
}

// Render resolves the poster markup and turns it into an image. Only the renderer can fail the stage.
func (p *Pipeline) Render(ctx context.Context, req PosterRequest, rep Reporter) (domain.Poster, error) {
	if strings.TrimSpace(req.Content) == "" {
		return domain.Poster{}, domain.ErrEmptyContent
	}
	if p.renderer == nil {
		return domain.Poster{}, domain.NewStageError("render", errors.New("poster rendering is disabled"))
	}

	html, source, err := p.resolveTemplate(ctx, req, rep)
	if err != nil {
		return domain.Poster{}, domain.NewStageError("render", err)
	}

	rep.Update(70, "Rendering poster...")
	path := p.store.PosterPath(req.Day)
	if err := p.renderer.Render(ctx, html, path); err != nil {
		return domain.Poster{}, domain.NewStageError("render", err)
	}

	rep.AppendDetail(fmt.Sprintf("poster rendered from %s template", source))
	return domain.Poster{Date: req.Day, Path: path, TemplateSource: source}, nil
}

func (p *Pipeline) resolveTemplate(ctx context.Context, req PosterRequest, rep Reporter) (string, domain.TemplateSource, error) {
	if strings.TrimSpace(req.CustomHTML) != "" {
		return req.CustomHTML, domain.TemplateCustom, nil
	}

	if req.UseAI && p.summarizer != nil {
		rep.Update(30, "Generating poster layout...")
		html, err := p.summarizer.GeneratePosterHTML(ctx, req.Content, req.Day)
		closeErr := p.summarizer.Close()
		switch {
		case err != nil:
			p.logger.Warn("poster html generation failed, using default template", "error", err)
		case closeErr != nil:
			p.logger.Warn("closing language model session failed, using default template", "error", closeErr)
		case strings.TrimSpace(html) == "":
			p.logger.Warn("language model returned empty poster html, using default template")
		default:
			return html, domain.TemplateAI, nil
		}
	}

	if p.template == nil {
		return "", "", errors.New("no default poster template")
	}
	html, err := p.template.Build(req.Content, req.Day)
	if err != nil {
		return "", "", fmt.Errorf("build default template: %w", err)
	}
	return html, domain.TemplateDefault, nil
}

// SendReport publishes the text digest.
func (p *Pipeline) SendReport(ctx context.Context, day, content string) (domain.PublishResult, error) {
	if strings.TrimSpace(content) == "" {
		return domain.PublishResult{}, domain.ErrEmptyContent
	}
	if p.publisher == nil {
		return domain.PublishResult{}, domain.NewStageError("distribute", errors.New("publisher is not configured"))
	}
	result, err := p.publisher.SendReport(ctx, content, day)
	if err != nil {
		return domain.PublishResult{}, domain.NewStageError("distribute", err)
	}
	return result, nil
}

// SendPoster publishes only the poster image. The file must already exist in the posters directory.
func (p *Pipeline) SendPoster(ctx context.Context, day, imagePath string) (domain.PublishResult, error) {
	path, err := p.store.ResolvePoster(imagePath)
	if err != nil {
		return domain.PublishResult{}, err
	}
	if p.publisher == nil {
		return domain.PublishResult{}, domain.NewStageError("distribute", errors.New("publisher is not configured"))
	}
	result, err := p.publisher.SendPoster(ctx, path, day)
	if err != nil {
		return domain.PublishResult{}, domain.NewStageError("distribute", err)
	}
	return result, nil
}

func uniqueSources(sources []string) []string {
	if len(sources) == 0 {
		sources = scanner.DefaultSources
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
