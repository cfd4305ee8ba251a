package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOG_LEVEL", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"WATCHTOWER_RECALLS_URL", "WATCHTOWER_RECALLS_RSS_URLS",
		"WATCHTOWER_SHORTAGES_URL", "WATCHTOWER_SHORTAGES_FALLBACK_URLS",
		"WATCHTOWER_WARNING_LETTERS_URLS",
		"WATCHTOWER_SYNC_DELAY_SECONDS", "WATCHTOWER_HTTP_TIMEOUT_SECONDS",
		"WATCHTOWER_SYNC_TIMEOUT_SECONDS", "GOLDEN_WORKFLOW_TIMEOUT_SECONDS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.DatabaseURL, "localhost")
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.NotEmpty(t, cfg.RecallsPrimaryURL)
	assert.NotEmpty(t, cfg.ShortagesPrimaryURL)
	assert.NotEmpty(t, cfg.WarningLettersURLs)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncDelay)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 60*time.Second, cfg.SyncTimeout)
	assert.Equal(t, 120*time.Second, cfg.WorkflowTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/db")
	t.Setenv("REDIS_ADDR", "redis-prod:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WATCHTOWER_SYNC_DELAY_SECONDS", "1.5")
	t.Setenv("WATCHTOWER_RECALLS_RSS_URLS", "https://a.example/rss,https://b.example/rss")

	cfg := config.Load()

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "redis-prod:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 1500*time.Millisecond, cfg.SyncDelay)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/rss"}, cfg.RecallsRSSURLs)
}

func TestApplyOverlay_MissingFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	cfg := config.Load()
	err := cfg.ApplyOverlay(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
}

func TestApplyOverlay_OverridesSourceURLs(t *testing.T) {
	clearEnv(t)
	cfg := config.Load()

	path := filepath.Join(t.TempDir(), "sources.yaml")
	contents := "recalls:\n  primary: https://overlay.example/recalls.json\n  rss:\n    - https://overlay.example/rss\nshortages:\n  primary: https://overlay.example/shortages.json\nwarning_letters:\n  urls:\n    - https://overlay.example/warning-letters\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	require.NoError(t, cfg.ApplyOverlay(path))

	assert.Equal(t, "https://overlay.example/recalls.json", cfg.RecallsPrimaryURL)
	assert.Equal(t, []string{"https://overlay.example/rss"}, cfg.RecallsRSSURLs)
	assert.Equal(t, "https://overlay.example/shortages.json", cfg.ShortagesPrimaryURL)
	assert.Equal(t, []string{"https://overlay.example/warning-letters"}, cfg.WarningLettersURLs)
}
