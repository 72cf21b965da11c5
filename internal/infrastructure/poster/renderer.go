package poster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"DailyDigest/internal/config"
	"DailyDigest/internal/ports"
)

// ChromeRenderer screenshots poster markup with a headless Chrome.
type ChromeRenderer struct {
	width      int64
	height     int64
	quality    int
	timeout    time.Duration
	chromePath string
	logger     *slog.Logger
}

var _ ports.Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer requires Chrome or Chromium on the host.
func NewChromeRenderer(cfg config.PosterConfig, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{
		width:      cfg.Width,
		height:     cfg.Height,
		quality:    cfg.Quality,
		timeout:    cfg.Timeout(),
		chromePath: cfg.ChromePath,
		logger:     logger,
	}
}

// PagePath is where the markup a poster was rendered from is kept.
func PagePath(outPath string) string {
	return strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".html"
}

// Render stores html next to outPath and writes a full-page JPEG screenshot of it to outPath.
func (r *ChromeRenderer) Render(ctx context.Context, html, outPath string) error {
	page, err := filepath.Abs(PagePath(outPath))
	if err != nil {
		return fmt.Errorf("resolve poster page: %w", err)
	}
	if err := os.WriteFile(page, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write poster page: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if r.timeout > 0 {
		browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
		defer cancel()
	}

	var shot []byte
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(r.width, r.height),
		chromedp.Navigate("file://"+filepath.ToSlash(page)),
		chromedp.WaitReady("body"),
		// fonts and inline images settle after the load event
		chromedp.Sleep(500*time.Millisecond),
		chromedp.FullScreenshot(&shot, r.quality),
	)
	if err != nil {
		return fmt.Errorf("render poster: %w", err)
	}

	if err := os.WriteFile(outPath, shot, 0o644); err != nil {
		return fmt.Errorf("write poster: %w", err)
	}

	r.logger.Info("poster rendered", "path", outPath, "bytes", len(shot))
	return nil
}
