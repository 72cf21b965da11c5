package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DailyDigest/internal/domain"
)

// CrawlJob scrapes the requested sources for day and caches the result.
func (p *Pipeline) CrawlJob(day time.Time, sources []string) Job {
	return Job{
		Kind:    domain.KindCrawl,
		Message: "Starting crawl...",
		Run: func(ctx context.Context, rep Reporter) (Outcome, error) {
			key := domain.DayKey(day)
			articles := p.Scrape(ctx, day, sources, rep, 20, 80)

			rep.Update(80, "Crawl finished, saving cache...")
			if _, err := p.Cache(key, articles); err != nil {
				return Outcome{}, err
			}

			p.logger.Info("crawl finished", "date", key, "articles", len(articles))
			return Outcome{
				Result:  domain.CrawlResult{Date: key, Articles: articles, Total: len(articles)},
				Message: fmt.Sprintf("Crawl finished: %d articles", len(articles)),
			}, nil
		},
	}
}

// ReportJob synthesizes and stores the digest for day.
func (p *Pipeline) ReportJob(day string, articles []domain.Article) Job {
	return Job{
		Kind:    domain.KindReport,
		Message: "Generating daily report...",
		Run: func(ctx context.Context, rep Reporter) (Outcome, error) {
			rep.Update(10, "Generating daily report...")
			result, err := p.Summarize(ctx, day, articles)
			if err != nil {
				return Outcome{}, fmt.Errorf("report generation failed: %w", err)
			}
			return Outcome{Result: result, Message: "Daily report generated"}, nil
		},
	}
}

// PosterJob renders the poster described by req.
func (p *Pipeline) PosterJob(req PosterRequest) Job {
	return Job{
		Kind:    domain.KindPoster,
		Message: "Generating poster...",
		Run: func(ctx context.Context, rep Reporter) (Outcome, error) {
			poster, err := p.Render(ctx, req, rep)
			if err != nil {
				return Outcome{}, fmt.Errorf("poster generation failed: %w", err)
			}
			return Outcome{Result: domain.PosterResult{Poster: poster}, Message: "Poster generated"}, nil
		},
	}
}

// DailyRequest configures a full scrape-to-publish run.
type DailyRequest struct {
	Day     time.Time
	Sources []string
	UseAI   bool
	Publish bool
}

// DailyJob chains every stage. Poster and publish problems are recorded but do not fail the run.
func (p *Pipeline) DailyJob(req DailyRequest) Job {
	return Job{
		Kind:    domain.KindDaily,
		Message: "Starting daily pipeline...",
		Run: func(ctx context.Context, rep Reporter) (Outcome, error) {
			key := domain.DayKey(req.Day)
			result := domain.DailyResult{Date: key}

			articles := p.Scrape(ctx, req.Day, req.Sources, rep, 5, 40)
			result.Articles = len(articles)

			rep.Update(40, "Saving article cache...")
			if _, err := p.Cache(key, articles); err != nil {
				return Outcome{}, err
			}

			rep.Update(50, "Generating daily report...")
			report, err := p.Summarize(ctx, key, articles)
			if err != nil {
				return Outcome{}, fmt.Errorf("report generation failed: %w", err)
			}
			result.Report = report.Files
			rep.AppendDetail(fmt.Sprintf("report saved: %s", report.Files.Markdown))

			if p.renderer != nil {
				rep.Update(75, "Generating poster...")
				poster, err := p.Render(ctx, PosterRequest{Day: key, Content: report.Report.Content, UseAI: req.UseAI}, rep)
				if err != nil {
					p.logger.Warn("daily poster failed", "date", key, "error", err)
					rep.AppendDetail(fmt.Sprintf("poster skipped: %v", err))
				} else {
					result.Poster = &poster
				}
			}

			if req.Publish {
				rep.Update(90, "Publishing...")
				result.Publish, result.Published = p.publish(ctx, key, report.Report.Content, result.Poster, rep)
			}

			return Outcome{
				Result:  result,
				Message: fmt.Sprintf("Daily pipeline finished: %d articles", result.Articles),
			}, nil
		},
	}
}

func (p *Pipeline) publish(ctx context.Context, day, content string, poster *domain.Poster, rep Reporter) (*domain.PublishResult, bool) {
	sent, err := p.SendReport(ctx, day, content)
	if err != nil {
		rep.AppendDetail(fmt.Sprintf("report delivery failed: %v", err))
		return &domain.PublishResult{Success: false, Message: err.Error()}, false
	}
	rep.AppendDetail("report delivered")

	if poster != nil {
		if _, err := p.SendPoster(ctx, day, poster.Path); err != nil {
			rep.AppendDetail(fmt.Sprintf("poster delivery failed: %v", err))
		} else {
			rep.AppendDetail("poster delivered")
		}
	}
	return &sent, sent.Success
}

// ConnectivityJob checks the language model, the webhook and the source registry one after another.
func (p *Pipeline) ConnectivityJob() Job {
	return Job{
		Kind:    domain.KindConnectivity,
		Message: "Testing connections...",
		Run: func(ctx context.Context, rep Reporter) (Outcome, error) {
			checks := []struct {
				name     string
				progress int
				run      func(context.Context) (string, error)
			}{
				{"deepseek", 25, p.checkSummarizer},
				{"webhook", 50, p.checkPublisher},
				{"scrapers", 75, p.checkSources},
			}

			results := make(map[string]domain.CheckResult, len(checks))
			for _, check := range checks {
				rep.Update(check.progress, fmt.Sprintf("Testing %s...", check.name))

				msg, err := check.run(ctx)
				if err != nil {
					results[check.name] = domain.CheckResult{Success: false, Error: err.Error()}
					rep.AppendDetail(fmt.Sprintf("%s: failed - %v", check.name, err))
					continue
				}
				results[check.name] = domain.CheckResult{Success: true, Message: msg}
				rep.AppendDetail(fmt.Sprintf("%s: ok", check.name))
			}

			return Outcome{
				Result:  domain.ConnectivityResult{Results: results},
				Message: "Connection test finished",
			}, nil
		},
	}
}

func (p *Pipeline) checkSummarizer(ctx context.Context) (string, error) {
	if p.summarizer == nil {
		return "", fmt.Errorf("summarizer is not configured")
	}
	defer p.summarizer.Close()
	if err := p.summarizer.TestConnection(ctx); err != nil {
		return "", err
	}
	return "connected", nil
}

func (p *Pipeline) checkPublisher(ctx context.Context) (string, error) {
	if p.publisher == nil {
		return "", fmt.Errorf("publisher is not configured")
	}
	if err := p.publisher.Test(ctx); err != nil {
		return "", err
	}
	return "connected", nil
}

func (p *Pipeline) checkSources(context.Context) (string, error) {
	names := p.sources.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("no sources registered")
	}
	return fmt.Sprintf("sources loaded: %s", strings.Join(names, ", ")), nil
}
