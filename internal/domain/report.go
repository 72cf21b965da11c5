package domain

import "time"

// Report is the synthesized daily digest.
type Report struct {
	Content   string    `json:"content"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
	Edited    bool      `json:"edited,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// ReportFiles names the pair of files a report is persisted to.
type ReportFiles struct {
	JSON     string `json:"json"`
	Markdown string `json:"markdown"`
}

// TemplateSource records which markup a poster was rendered from.
type TemplateSource string

const (
	TemplateCustom  TemplateSource = "custom"
	TemplateAI      TemplateSource = "ai"
	TemplateDefault TemplateSource = "default"
)

// Poster is a rendered digest image.
type Poster struct {
	Date           string         `json:"date"`
	Path           string         `json:"path"`
	TemplateSource TemplateSource `json:"html_source"`
}

// PublishResult is what a publisher reports back after delivery.
type PublishResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FileInfo describes one stored artifact for listings.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// FileListing groups stored artifacts by kind.
type FileListing struct {
	Reports []FileInfo `json:"reports"`
	Posters []FileInfo `json:"posters"`
	Cache   []FileInfo `json:"cache"`
}
