package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("APIFY_TOKEN", "apify-test")
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "real-estate-search-service", cfg.AppName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "maxcopell/zillow-zip-search", cfg.Apify.ActorID)
	assert.Equal(t, 1000, cfg.Apify.PageSize)
	assert.Equal(t, 10*time.Minute, cfg.Apify.MaxRunDuration)
	assert.Zero(t, cfg.Apify.HTTPTimeout)
	assert.Nil(t, cfg.LLM.Temperature)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.False(t, cfg.FluentBit.Enabled)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadConfigRequiredKeys(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("APIFY_TOKEN", "x")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "x")
	t.Setenv("APIFY_TOKEN", "")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "APIFY_TOKEN")
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "OPENAI_API_KEY=from-file\nAPIFY_TOKEN=token\nAPIFY_PAGE_SIZE=50\nCORS_ALLOWED_ORIGINS= http://a.test , ,http://b.test\nFLUENTBIT_ENABLED=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv не перезаписывает уже заданные переменные
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("APIFY_TOKEN", "")
	os.Unsetenv("APIFY_TOKEN")
	for _, key := range []string{"APIFY_PAGE_SIZE", "CORS_ALLOWED_ORIGINS", "FLUENTBIT_ENABLED", "FLUENTBIT_HOST"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, 50, cfg.Apify.PageSize)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.FluentBit.Enabled, "fluent bit without host is disabled")
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	setRequired(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestGetEnvAsIntFallsBack(t *testing.T) {
	t.Setenv("APIFY_WAIT_SECONDS", "soon")
	assert.Equal(t, 60, getEnvAsInt("APIFY_WAIT_SECONDS", 60))
	t.Setenv("APIFY_WAIT_SECONDS", "30")
	assert.Equal(t, 30, getEnvAsInt("APIFY_WAIT_SECONDS", 60))
}

func TestLoadConfigClientTuning(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("APIFY_MAX_RUN_SECONDS", "120")
	t.Setenv("APIFY_HTTP_TIMEOUT_SECONDS", "45")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.2, *cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.Apify.MaxRunDuration)
	assert.Equal(t, 45*time.Second, cfg.Apify.HTTPTimeout)

	t.Setenv("LLM_TEMPERATURE", "warm")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg.LLM.Temperature)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
