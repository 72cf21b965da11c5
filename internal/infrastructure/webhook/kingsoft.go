package webhook

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

// maxMarkdownRunes is the largest markdown body the robot accepts in one message.
const maxMarkdownRunes = 4000

// KingsoftPublisher posts digests to a Kingsoft Docs group robot.
type KingsoftPublisher struct {
	creds     ports.Credentials
	staticURL string
	client    *http.Client
}

var _ ports.Publisher = (*KingsoftPublisher)(nil)

// NewKingsoftPublisher reads the webhook URL from creds on every send; cfg.URL is the fallback.
func NewKingsoftPublisher(cfg config.WebhookConfig, creds ports.Credentials) *KingsoftPublisher {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KingsoftPublisher{
		creds:     creds,
		staticURL: cfg.URL,
		client:    &http.Client{Timeout: timeout},
	}
}

type markdownMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Text string `json:"text"`
	} `json:"markdown"`
}

type imageMessage struct {
	MsgType string `json:"msgtype"`
	Image   struct {
		Base64 string `json:"base64"`
		MD5    string `json:"md5"`
	} `json:"image"`
}

type robotResponse struct {
	Code    *int   `json:"code"`
	ErrCode *int   `json:"errcode"`
	Msg     string `json:"msg"`
	ErrMsg  string `json:"errmsg"`
}

// SendReport posts the digest as markdown, split into several messages when it is long.
func (k *KingsoftPublisher) SendReport(ctx context.Context, content, day string) (domain.PublishResult, error) {
	chunks := splitMarkdown(fmt.Sprintf("# AI Daily %s\n\n%s", day, strings.TrimSpace(content)), maxMarkdownRunes)
	for i, chunk := range chunks {
		var msg markdownMessage
		msg.MsgType = "markdown"
		msg.Markdown.Text = chunk
		if err := k.post(ctx, msg); err != nil {
			return domain.PublishResult{}, fmt.Errorf("send report part %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return domain.PublishResult{
		Success: true,
		Message: fmt.Sprintf("report for %s sent in %d message(s)", day, len(chunks)),
	}, nil
}

// SendPoster posts only the image.
func (k *KingsoftPublisher) SendPoster(ctx context.Context, imagePath, day string) (domain.PublishResult, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("read poster: %w", err)
	}
	sum := md5.Sum(raw)

	var msg imageMessage
	msg.MsgType = "image"
	msg.Image.Base64 = base64.StdEncoding.EncodeToString(raw)
	msg.Image.MD5 = hex.EncodeToString(sum[:])

	if err := k.post(ctx, msg); err != nil {
		return domain.PublishResult{}, fmt.Errorf("send poster: %w", err)
	}
	return domain.PublishResult{Success: true, Message: fmt.Sprintf("poster for %s sent", day)}, nil
}

// Test posts a short markdown message.
func (k *KingsoftPublisher) Test(ctx context.Context) error {
	var msg markdownMessage
	msg.MsgType = "markdown"
	msg.Markdown.Text = "DailyDigest webhook connection test"
	return k.post(ctx, msg)
}

func (k *KingsoftPublisher) url() string {
	if k.creds != nil {
		if u := k.creds.WebhookURL(); u != "" {
			return u
		}
	}
	return k.staticURL
}

func (k *KingsoftPublisher) post(ctx context.Context, payload any) error {
	endpoint := k.url()
	if endpoint == "" || k.client == nil {
		return fmt.Errorf("kingsoft webhook misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook error: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var decoded robotResponse
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &decoded) != nil {
		return nil
	}
	if code := firstNonNil(decoded.Code, decoded.ErrCode); code != 0 {
		msg := decoded.Msg
		if msg == "" {
			msg = decoded.ErrMsg
		}
		return fmt.Errorf("webhook rejected message: code %d: %s", code, msg)
	}
	return nil
}

func firstNonNil(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// splitMarkdown cuts text on line boundaries into chunks of at most limit runes.
func splitMarkdown(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		size   int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if size+len(runes) > limit {
			flush()
		}
		cur.WriteString(string(runes))
		size += len(runes)
	}
	flush()

	return chunks
}
