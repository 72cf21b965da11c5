package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

// listingLayout names the selectors of a news listing page and its article pages.
type listingLayout struct {
	Item    string
	Link    string
	Title   string
	Date    string
	Summary string
	Body    string
	// TitleContains keeps only entries whose title has this substring, when set.
	TitleContains string
}

type listingEntry struct {
	Title   string
	URL     string
	Summary string
	Day     time.Time
}

// listingScanner walks a listing page, keeps entries of the requested day and
// converts each article body to markdown.
type listingScanner struct {
	name      string
	source    string
	listURL   string
	userAgent string
	maxItems  int
	layout    listingLayout

	client    *http.Client
	converter *md.Converter
	logger    *slog.Logger
	now       func() time.Time
}

func newListingScanner(name, source, listURL, userAgent string, maxItems int, layout listingLayout, client *http.Client, logger *slog.Logger) *listingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &listingScanner{
		name:      name,
		source:    source,
		listURL:   listURL,
		userAgent: userAgent,
		maxItems:  maxItems,
		layout:    layout,
		client:    client,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
		now:       time.Now,
	}
}

// Name identifies the source inside the registry.
func (s *listingScanner) Name() string {
	return s.name
}

// Fetch returns the articles listed for day. A listing failure is fatal; a broken
// article page only adds an entry to FetchResult.Errors.
func (s *listingScanner) Fetch(ctx context.Context, day time.Time) (ports.FetchResult, error) {
	doc, err := s.fetchDocument(ctx, s.listURL)
	if err != nil {
		return ports.FetchResult{}, fmt.Errorf("%s listing: %w", s.name, err)
	}

	base, err := url.Parse(s.listURL)
	if err != nil {
		return ports.FetchResult{}, fmt.Errorf("invalid listing url %s: %w", s.listURL, err)
	}

	entries := s.extractEntries(doc, base, day)
	s.logger.Debug("listing parsed", "source", s.name, "day", domain.DayKey(day), "entries", len(entries))

	result := ports.FetchResult{Articles: make([]domain.Article, 0, len(entries))}
	for _, entry := range entries {
		content, err := s.fetchBody(ctx, entry.URL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Title, err))
			if entry.Summary == "" {
				continue
			}
			content = entry.Summary
		}

		result.Articles = append(result.Articles, domain.Article{
			Title:   entry.Title,
			Date:    domain.DayKey(entry.Day),
			Content: content,
			URL:     entry.URL,
			Source:  s.source,
			Weight:  domain.DefaultWeight,
		})
	}

	return result, nil
}

func (s *listingScanner) extractEntries(doc *goquery.Document, base *url.URL, day time.Time) []listingEntry {
	var (
		entries []listingEntry
		seen    = map[string]struct{}{}
		target  = domain.DayKey(day)
		now     = s.now().In(day.Location())
	)

	doc.Find(s.layout.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		entry, ok := parseEntry(item, s.layout, base, now)
		if !ok || domain.DayKey(entry.Day) != target {
			return true
		}
		if s.layout.TitleContains != "" && !strings.Contains(entry.Title, s.layout.TitleContains) {
			return true
		}
		if _, dup := seen[entry.URL]; dup {
			return true
		}
		seen[entry.URL] = struct{}{}
		entries = append(entries, entry)

		return s.maxItems <= 0 || len(entries) < s.maxItems
	})

	return entries
}

func parseEntry(item *goquery.Selection, layout listingLayout, base *url.URL, now time.Time) (listingEntry, bool) {
	link := item
	if layout.Link != "" {
		link = item.Find(layout.Link).First()
	}
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return listingEntry{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return listingEntry{}, false
	}

	title := collapseSpace(item.Find(layout.Title).First().Text())
	if title == "" {
		title = collapseSpace(link.Text())
	}
	if title == "" {
		return listingEntry{}, false
	}

	published, ok := parseListingDate(item.Find(layout.Date).First().Text(), now)
	if !ok {
		return listingEntry{}, false
	}

	var summary string
	if layout.Summary != "" {
		summary = collapseSpace(item.Find(layout.Summary).First().Text())
	}

	return listingEntry{
		Title:   title,
		URL:     base.ResolveReference(ref).String(),
		Summary: summary,
		Day:     published,
	}, true
}

func (s *listingScanner) fetchBody(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	body := doc.Find(s.layout.Body).First()
	if body.Length() == 0 {
		return "", fmt.Errorf("article body not found")
	}
	body.Find("script, style").Remove()

	html, err := goquery.OuterHtml(body)
	if err != nil {
		return "", fmt.Errorf("read article body: %w", err)
	}
	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert article body: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", fmt.Errorf("article body is empty")
	}
	return markdown, nil
}

func (s *listingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
