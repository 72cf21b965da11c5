package api

import "DailyDigest/internal/domain"

type crawlRequest struct {
	Date    string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Sources []string `json:"sources" validate:"omitempty,dive,oneof=tencent aibase"`
}

type reportRequest struct {
	Date     string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Articles []domain.Article `json:"articles"`
}

type contentRequest struct {
	Content string `json:"content"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type posterRequest struct {
	Content string `json:"content"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	HTML    string `json:"html"`
	UseAI   bool   `json:"use_ai"`
}

type sendPosterRequest struct {
	ImagePath string `json:"image_path" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type pipelineRequest struct {
	Date    string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Sources []string `json:"sources" validate:"omitempty,dive,oneof=tencent aibase"`
	UseAI   *bool    `json:"use_ai"`
	Publish bool     `json:"publish"`
}

type configSaveRequest struct {
	DeepSeekAPIKey *string `json:"deepseek_api_key"`
	WebhookURL     *string `json:"webhook_url"`
}
