package poster

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"DailyDigest/internal/ports"
)

const defaultPage = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>AI Daily {{.Day}}</title>
<style>
  body { margin: 0; width: 800px; background: #0f172a; color: #e2e8f0;
         font-family: "PingFang SC", "Noto Sans CJK SC", "Microsoft YaHei", sans-serif; }
  header { padding: 48px 56px 24px; background: linear-gradient(135deg, #1d4ed8, #7c3aed); }
  header h1 { margin: 0; font-size: 44px; color: #fff; }
  header p { margin: 8px 0 0; font-size: 20px; color: #c7d2fe; }
  main { padding: 24px 56px 48px; font-size: 20px; line-height: 1.7; }
  main h1, main h2, main h3 { color: #93c5fd; }
  main a { color: #a5b4fc; word-break: break-all; }
  main li { margin-bottom: 8px; }
  footer { padding: 16px 56px 32px; font-size: 14px; color: #64748b; }
</style>
</head>
<body>
<header><h1>AI Daily</h1><p>{{.Day}}</p></header>
<main>{{.Body}}</main>
<footer>Generated by DailyDigest</footer>
</body>
</html>`

// DefaultTemplate renders the markdown report into the built-in poster page.
type DefaultTemplate struct {
	md   goldmark.Markdown
	page *template.Template
}

var _ ports.PosterTemplate = (*DefaultTemplate)(nil)

// NewDefaultTemplate parses the built-in page once.
func NewDefaultTemplate() *DefaultTemplate {
	return &DefaultTemplate{
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		page: template.Must(template.New("poster").Parse(defaultPage)),
	}
}

// Build converts content to HTML and embeds it in the page. Raw HTML in content is dropped by goldmark.
func (t *DefaultTemplate) Build(content, day string) (string, error) {
	var body bytes.Buffer
	if err := t.md.Convert([]byte(content), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	var out bytes.Buffer
	err := t.page.Execute(&out, struct {
		Day  string
		Body template.HTML
	}{Day: day, Body: template.HTML(body.String())})
	if err != nil {
		return "", fmt.Errorf("execute poster template: %w", err)
	}
	return out.String(), nil
}
