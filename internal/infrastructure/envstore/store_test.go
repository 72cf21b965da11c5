package envstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
)

func ptr(s string) *string { return &s }

func TestOpenMissingFileFallsBackToEnvironment(t *testing.T) {
	t.Setenv(config.DeepSeekAPIKeyEnv, "sk-from-env")
	t.Setenv(config.WebhookURLEnv, "")

	store, err := Open(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", store.DeepSeekAPIKey())
	assert.Equal(t, "", store.WebhookURL())
}

func TestSaveIgnoresMaskedValues(t *testing.T) {
	t.Setenv(config.DeepSeekAPIKeyEnv, "")
	t.Setenv(config.WebhookURLEnv, "")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DEEPSEEK_API_KEY=sk-original1234\nOTHER=keep\n"), 0o600))

	store, err := Open(path)
	require.NoError(t, err)

	_, err = store.Save(SecretsUpdate{DeepSeekAPIKey: ptr("********1234"), WebhookURL: ptr("https://hook.example/****")})
	assert.ErrorIs(t, err, domain.ErrNoConfigUpdates)

	_, err = store.Save(SecretsUpdate{})
	assert.ErrorIs(t, err, domain.ErrNoConfigUpdates)

	n, err := store.Save(SecretsUpdate{DeepSeekAPIKey: ptr("  "), WebhookURL: ptr(" https://hook.example/robot?key=abc ")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	onDisk, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-original1234", onDisk["DEEPSEEK_API_KEY"])
	assert.Equal(t, "https://hook.example/robot?key=abc", onDisk["KINGSOFT_WEBHOOK_URL"])
	assert.Equal(t, "keep", onDisk["OTHER"])
	assert.Equal(t, "https://hook.example/robot?key=abc", store.WebhookURL())
}

func TestDisplayRoundTripIsIgnored(t *testing.T) {
	t.Setenv(config.DeepSeekAPIKeyEnv, "")
	t.Setenv(config.WebhookURLEnv, "")

	store, err := Open(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	_, err = store.Save(SecretsUpdate{DeepSeekAPIKey: ptr("sk-abcdef123456"), WebhookURL: ptr("https://hook.example/robot?key=abc")})
	require.NoError(t, err)

	shown := store.Display()
	assert.Equal(t, "***********3456", shown.DeepSeekAPIKey)
	assert.Equal(t, "https://hook.example/****", shown.WebhookURL)

	_, err = store.Save(SecretsUpdate{DeepSeekAPIKey: &shown.DeepSeekAPIKey, WebhookURL: &shown.WebhookURL})
	assert.ErrorIs(t, err, domain.ErrNoConfigUpdates)
	assert.Equal(t, "sk-abcdef123456", store.DeepSeekAPIKey())
}

func TestValidate(t *testing.T) {
	t.Setenv(config.DeepSeekAPIKeyEnv, "")
	t.Setenv(config.WebhookURLEnv, "")

	store, err := Open(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)

	st := store.Validate()
	assert.False(t, st.Valid)
	assert.False(t, st.DeepSeekConfigured)
	assert.Len(t, st.Issues, 2)

	require.NoError(t, store.Update(map[string]string{
		config.DeepSeekAPIKeyEnv: "key-without-prefix",
		config.WebhookURLEnv:     "ftp://hook",
	}))
	st = store.Validate()
	assert.True(t, st.DeepSeekConfigured)
	assert.True(t, st.WebhookConfigured)
	assert.Len(t, st.Issues, 2)

	require.NoError(t, store.Update(map[string]string{
		config.DeepSeekAPIKeyEnv: "sk-good",
		config.WebhookURLEnv:     "https://hook.example/robot",
	}))
	assert.True(t, store.Validate().Valid)
}

func TestMasking(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.Equal(t, "****5678", MaskKey("12345678"))
	assert.Equal(t, "", MaskURL(""))
	assert.Equal(t, "https://x.example/****", MaskURL("https://x.example/path?key=1"))
}
