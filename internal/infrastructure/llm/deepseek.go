package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

const (
	reportSystemPrompt = "You are the editor of a daily AI industry briefing. " +
		"Write in Simplified Chinese, in Markdown, grouping related news under short headings. " +
		"Keep every item factual and cite its source link."
	posterSystemPrompt = "You design single-page HTML posters. Reply with one complete HTML document " +
		"with inline CSS only, no external assets and no scripts, laid out for a fixed width of 800px."
	maxArticleRunes = 1200
)

// DeepSeekClient implements ports.Summarizer backed by the OpenAI-compatible DeepSeek chat API.
type DeepSeekClient struct {
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	creds       ports.Credentials
	staticKey   string
	httpClient  *http.Client
}

var _ ports.Summarizer = (*DeepSeekClient)(nil)

// NewDeepSeekClient builds a client from configuration. The API key is read from creds on
// every call so a key saved at runtime is picked up; cfg.APIKey is the fallback.
func NewDeepSeekClient(cfg config.DeepSeekConfig, creds ports.Credentials) *DeepSeekClient {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &DeepSeekClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		creds:       creds,
		staticKey:   cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateDailyReport asks the model for the markdown digest of articles.
func (c *DeepSeekClient) GenerateDailyReport(ctx context.Context, articles []domain.Article, day string) (string, error) {
	if len(articles) == 0 {
		return "", domain.ErrNoArticles
	}
	content, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: reportSystemPrompt},
		{Role: "user", Content: buildReportPrompt(articles, day)},
	}, c.maxTokens)
	if err != nil {
		return "", fmt.Errorf("generate daily report: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// GeneratePosterHTML asks the model for a poster page presenting content.
func (c *DeepSeekClient) GeneratePosterHTML(ctx context.Context, content, day string) (string, error) {
	prompt := fmt.Sprintf("Create a poster titled \"AI Daily %s\" that presents this briefing:\n\n%s", day, content)
	html, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: posterSystemPrompt},
		{Role: "user", Content: prompt},
	}, c.maxTokens)
	if err != nil {
		return "", fmt.Errorf("generate poster html: %w", err)
	}
	html = stripCodeFence(html)
	if !strings.Contains(strings.ToLower(html), "<html") {
		return "", fmt.Errorf("generate poster html: response is not an html document")
	}
	return html, nil
}

// TestConnection performs the smallest possible completion.
func (c *DeepSeekClient) TestConnection(ctx context.Context) error {
	_, err := c.chat(ctx, []chatMessage{{Role: "user", Content: "ping"}}, 5)
	return err
}

// Close drops pooled connections.
func (c *DeepSeekClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *DeepSeekClient) apiKey() string {
	if c.creds != nil {
		if key := c.creds.DeepSeekAPIKey(); key != "" {
			return key
		}
	}
	return c.staticKey
}

func (c *DeepSeekClient) chat(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	apiKey := c.apiKey()
	if apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("deepseek client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal deepseek payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("deepseek error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode deepseek response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", fmt.Errorf("deepseek error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("deepseek returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func buildReportPrompt(articles []domain.Article, day string) string {
	sorted := make([]domain.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	var b strings.Builder
	fmt.Fprintf(&b, "Write the AI daily briefing for %s from the %d news items below.\n", day, len(sorted))
	b.WriteString("Start with a one-paragraph overview, then the items ordered by importance.\n\n")
	for i, a := range sorted {
		fmt.Fprintf(&b, "## %d. %s\n", i+1, a.Title)
		fmt.Fprintf(&b, "Source: %s | Date: %s | Weight: %d\n", a.Source, a.Date, a.Weight)
		if a.URL != "" {
			fmt.Fprintf(&b, "Link: %s\n", a.URL)
		}
		b.WriteString(truncateRunes(strings.TrimSpace(a.Content), maxArticleRunes))
		b.WriteString("\n\n")
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
