package parser

import (
	"log/slog"
	"net/http"

	"DailyDigest/internal/config"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/scanner"
)

const (
	tencentSourceName = "腾讯研究院AI速递"
	aibaseSourceName  = "AIBase快讯"
)

var (
	_ ports.SourceFetcher = (*SohuScanner)(nil)
	_ ports.SourceFetcher = (*AIBaseScanner)(nil)
)

// SohuScanner reads the Tencent Research Institute "AI速递" column from its Sohu profile.
type SohuScanner struct {
	*listingScanner
}

// NewSohuScanner wires an HTTP client; nil falls back to a 20s client.
func NewSohuScanner(cfg config.SourcesConfig, client *http.Client, logger *slog.Logger) *SohuScanner {
	layout := listingLayout{
		Item:          ".feed-item",
		Link:          "a.feed-title",
		Title:         "a.feed-title",
		Date:          ".feed-time",
		Summary:       ".feed-brief",
		Body:          "#mp-editor, article.article",
		TitleContains: "AI速递",
	}
	return &SohuScanner{newListingScanner(scanner.SourceTencent, tencentSourceName, cfg.TencentURL, cfg.UserAgent, cfg.MaxItems, layout, client, logger)}
}

// AIBaseScanner reads the AIBase news flash listing.
type AIBaseScanner struct {
	*listingScanner
}

// NewAIBaseScanner wires an HTTP client; nil falls back to a 20s client.
func NewAIBaseScanner(cfg config.SourcesConfig, client *http.Client, logger *slog.Logger) *AIBaseScanner {
	layout := listingLayout{
		Item:    ".news-item",
		Link:    "a",
		Title:   "h3",
		Date:    ".news-time",
		Summary: ".news-summary",
		Body:    ".post-content, article",
	}
	return &AIBaseScanner{newListingScanner(scanner.SourceAIBase, aibaseSourceName, cfg.AIBaseURL, cfg.UserAgent, cfg.MaxItems, layout, client, logger)}
}
