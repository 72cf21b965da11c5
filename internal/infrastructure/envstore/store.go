// Package envstore keeps the runtime-editable secrets in a .env file.
package envstore

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

// Store is an in-memory view of the .env file, written back on every update.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

var _ ports.Credentials = (*Store)(nil)

// Open reads path if it exists. Keys missing from the file fall back to the process environment.
func Open(path string) (*Store, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		values = map[string]string{}
	} else if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	for _, key := range []string{config.DeepSeekAPIKeyEnv, config.WebhookURLEnv} {
		if values[key] == "" {
			if v := os.Getenv(key); v != "" {
				values[key] = v
			}
		}
	}

	return &Store{path: path, values: values}, nil
}

// Get returns the current value of key.
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// DeepSeekAPIKey implements ports.Credentials.
func (s *Store) DeepSeekAPIKey() string {
	return s.Get(config.DeepSeekAPIKeyEnv)
}

// WebhookURL implements ports.Credentials.
func (s *Store) WebhookURL() string {
	return s.Get(config.WebhookURLEnv)
}

// Update merges updates into the file and the in-memory view.
func (s *Store) Update(updates map[string]string) error {
	if len(updates) == 0 {
		return domain.ErrNoConfigUpdates
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := maps.Clone(s.values)
	maps.Copy(merged, updates)

	if err := godotenv.Write(merged, s.path); err != nil {
		return fmt.Errorf("write env file %s: %w", s.path, err)
	}
	s.values = merged

	for k, v := range updates {
		_ = os.Setenv(k, v)
	}
	return nil
}

// SecretsUpdate is a save request as submitted by the settings form.
type SecretsUpdate struct {
	DeepSeekAPIKey *string
	WebhookURL     *string
}

// Save applies the non-masked, non-empty fields of req and reports how many keys changed.
func (s *Store) Save(req SecretsUpdate) (int, error) {
	updates := map[string]string{}

	if req.DeepSeekAPIKey != nil {
		key := strings.TrimSpace(*req.DeepSeekAPIKey)
		if key != "" && !strings.HasPrefix(key, "*") {
			updates[config.DeepSeekAPIKeyEnv] = key
		}
	}

	if req.WebhookURL != nil {
		hook := strings.TrimSpace(*req.WebhookURL)
		if hook != "" && !strings.Contains(hook, "*") {
			updates[config.WebhookURLEnv] = hook
		}
	}

	if err := s.Update(updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// Display is the masked view of the secrets.
type Display struct {
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	WebhookURL     string `json:"webhook_url"`
	EnvFile        string `json:"env_file"`
}

// Display masks every secret so it can be shown and posted back unchanged.
func (s *Store) Display() Display {
	return Display{
		DeepSeekAPIKey: MaskKey(s.DeepSeekAPIKey()),
		WebhookURL:     MaskURL(s.WebhookURL()),
		EnvFile:        s.path,
	}
}

// Status reports which secrets are usable.
type Status struct {
	DeepSeekConfigured bool     `json:"deepseek_configured"`
	WebhookConfigured  bool     `json:"webhook_configured"`
	Valid              bool     `json:"valid"`
	Issues             []string `json:"issues"`
}

// Validate checks the presence and shape of each secret.
func (s *Store) Validate() Status {
	st := Status{Issues: []string{}}

	key := s.DeepSeekAPIKey()
	st.DeepSeekConfigured = key != ""
	switch {
	case key == "":
		st.Issues = append(st.Issues, "DeepSeek API key is not set")
	case !strings.HasPrefix(key, "sk-"):
		st.Issues = append(st.Issues, "DeepSeek API key should start with sk-")
	}

	hook := s.WebhookURL()
	st.WebhookConfigured = hook != ""
	if hook == "" {
		st.Issues = append(st.Issues, "webhook URL is not set")
	} else if u, err := url.Parse(hook); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		st.Issues = append(st.Issues, "webhook URL is not a valid http(s) URL")
	}

	st.Valid = len(st.Issues) == 0
	return st
}

// MaskKey keeps the last four characters. The result always starts with '*'.
func MaskKey(value string) string {
	if value == "" {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

// MaskURL keeps scheme and host and hides the path and query.
func MaskURL(value string) string {
	if value == "" {
		return ""
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return MaskKey(value)
	}
	return u.Scheme + "://" + u.Host + "/****"
}
