package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Shanghai"
	configPathEnv   = "DAILY_DIGEST_CONFIG"
	addrEnv         = "DAILY_DIGEST_ADDR"
	logLevelEnv     = "DAILY_DIGEST_LOG_LEVEL"
	envFileEnv      = "DAILY_DIGEST_ENV_FILE"

	// Secret keys, shared with the .env store.
	DeepSeekAPIKeyEnv = "DEEPSEEK_API_KEY"
	DeepSeekModelEnv  = "DEEPSEEK_MODEL"
	DeepSeekURLEnv    = "DEEPSEEK_API_URL"
	WebhookURLEnv     = "KINGSOFT_WEBHOOK_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	DeepSeek  DeepSeekConfig  `yaml:"deepseek"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Poster    PosterConfig    `yaml:"poster"`
	Sources   SourcesConfig   `yaml:"sources"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	EnvFile   string          `yaml:"envFile"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig lists the artifact directories.
type StorageConfig struct {
	CacheDir     string `yaml:"cacheDir"`
	ReportsDir   string `yaml:"reportsDir"`
	PostersDir   string `yaml:"postersDir"`
	CacheEnabled bool   `yaml:"cacheEnabled"`
}

// DeepSeekConfig defines how to contact the DeepSeek chat API.
type DeepSeekConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"apiKey"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"maxTokens"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// Timeout is the per-request HTTP timeout.
func (d DeepSeekConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// WebhookConfig points at the Kingsoft Docs group robot.
type WebhookConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout is the per-request HTTP timeout.
func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// PosterConfig controls the headless browser renderer.
type PosterConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Width          int64  `yaml:"width"`
	Height         int64  `yaml:"height"`
	Quality        int    `yaml:"quality"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	ChromePath     string `yaml:"chromePath"`
}

// Timeout bounds one render.
func (p PosterConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SourcesConfig holds the listing pages of each news source.
type SourcesConfig struct {
	TencentURL string `yaml:"tencentUrl"`
	AIBaseURL  string `yaml:"aibaseUrl"`
	UserAgent  string `yaml:"userAgent"`
	MaxItems   int    `yaml:"maxItems"`
}

// SchedulerConfig defines when the daily pipeline runs unattended.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	RunAt    string         `yaml:"runAt"`
	Timezone string         `yaml:"timezone"`
	Sources  []string       `yaml:"sources"`
	UseAI    bool           `yaml:"useAi"`
	Publish  bool           `yaml:"publish"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fillDefaults(fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(addrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(envFileEnv); v != "" {
		c.EnvFile = v
	}

	if v := os.Getenv(DeepSeekAPIKeyEnv); v != "" {
		c.DeepSeek.APIKey = v
	}

	if v := os.Getenv(DeepSeekModelEnv); v != "" {
		c.DeepSeek.Model = v
	}

	if v := os.Getenv(DeepSeekURLEnv); v != "" {
		c.DeepSeek.Endpoint = v
	}

	if v := os.Getenv(WebhookURLEnv); v != "" {
		c.Webhook.URL = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

// fillDefaults restores settings a config file blanked out but the application cannot run without.
func fillDefaults(cfg Config) Config {
	def := defaultConfig()

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = def.Server.Addr
	}

	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = def.Storage.CacheDir
	}
	if cfg.Storage.ReportsDir == "" {
		cfg.Storage.ReportsDir = def.Storage.ReportsDir
	}
	if cfg.Storage.PostersDir == "" {
		cfg.Storage.PostersDir = def.Storage.PostersDir
	}

	if cfg.DeepSeek.Endpoint == "" {
		cfg.DeepSeek.Endpoint = def.DeepSeek.Endpoint
	}
	if cfg.DeepSeek.Model == "" {
		cfg.DeepSeek.Model = def.DeepSeek.Model
	}
	if cfg.DeepSeek.TimeoutSeconds <= 0 {
		cfg.DeepSeek.TimeoutSeconds = def.DeepSeek.TimeoutSeconds
	}
	if cfg.DeepSeek.MaxTokens <= 0 {
		cfg.DeepSeek.MaxTokens = def.DeepSeek.MaxTokens
	}

	if cfg.Webhook.TimeoutSeconds <= 0 {
		cfg.Webhook.TimeoutSeconds = def.Webhook.TimeoutSeconds
	}

	if cfg.Poster.Width <= 0 {
		cfg.Poster.Width = def.Poster.Width
	}
	if cfg.Poster.Height <= 0 {
		cfg.Poster.Height = def.Poster.Height
	}
	if cfg.Poster.Quality <= 0 || cfg.Poster.Quality > 100 {
		cfg.Poster.Quality = def.Poster.Quality
	}
	if cfg.Poster.TimeoutSeconds <= 0 {
		cfg.Poster.TimeoutSeconds = def.Poster.TimeoutSeconds
	}

	if cfg.Sources.TencentURL == "" {
		cfg.Sources.TencentURL = def.Sources.TencentURL
	}
	if cfg.Sources.AIBaseURL == "" {
		cfg.Sources.AIBaseURL = def.Sources.AIBaseURL
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = def.Sources.UserAgent
	}

	if cfg.Scheduler.RunAt == "" {
		cfg.Scheduler.RunAt = def.Scheduler.RunAt
	}
	if len(cfg.Scheduler.Sources) == 0 {
		cfg.Scheduler.Sources = def.Scheduler.Sources
	}

	if cfg.EnvFile == "" {
		cfg.EnvFile = def.EnvFile
	}

	return cfg
}

func defaultConfig() Config {
	return Config{
		Server:  ServerConfig{Addr: ":5000"},
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			CacheDir:     "data/cache",
			ReportsDir:   "data/reports",
			PostersDir:   "data/posters",
			CacheEnabled: true,
		},
		DeepSeek: DeepSeekConfig{
			Endpoint:       "https://api.deepseek.com/v1/chat/completions",
			Model:          "deepseek-chat",
			Temperature:    0.7,
			MaxTokens:      4000,
			TimeoutSeconds: 120,
		},
		Webhook: WebhookConfig{TimeoutSeconds: 30},
		Poster: PosterConfig{
			Enabled:        true,
			Width:          800,
			Height:         1200,
			Quality:        90,
			TimeoutSeconds: 60,
		},
		Sources: SourcesConfig{
			TencentURL: "https://mp.sohu.com/profile?xpt=cHBhZzc2NDg3NzEzMDk2MDg5ODg4MEBzb2h1LmNvbQ==",
			AIBaseURL:  "https://www.aibase.com/zh/news",
			UserAgent:  "Mozilla/5.0 (compatible; DailyDigest/1.0)",
			MaxItems:   30,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			RunAt:    "08:30",
			Timezone: defaultTimezone,
			Sources:  []string{"tencent", "aibase"},
			UseAI:    true,
			Publish:  false,
		},
		EnvFile: ".env",
	}
}
