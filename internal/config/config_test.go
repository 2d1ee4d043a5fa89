package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.Delivery.BatchSize)
	assert.Equal(t, 1000, cfg.Delivery.BatchDelayMs)
	assert.Equal(t, 60000, cfg.Segments.CacheTTLMs)
	assert.Equal(t, "data/shops", cfg.Storage.DataDir)
	assert.Equal(t, 30, cfg.Poller.IntervalSeconds)
	assert.Equal(t, 5, cfg.Content.MaxItems)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
delivery:
  batch_size: 25
  batch_delay_ms: 250
segments:
  cache_ttl_ms: 5000
tracking:
  base_url: https://shop.example
provider:
  name: sendgrid
  sendgrid_api_key: sg-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Delivery.BatchSize)
	assert.Equal(t, 250, cfg.Delivery.BatchDelayMs)
	assert.Equal(t, 5000, cfg.Segments.CacheTTLMs)
	assert.Equal(t, "https://shop.example", cfg.Tracking.BaseURL)
	assert.Equal(t, "sendgrid", cfg.Provider.Name)
	// Unset values still get defaults.
	assert.Equal(t, "us-west-2", cfg.Provider.SES.Region)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("EMAIL_BATCH_SIZE", "2")
	t.Setenv("EMAIL_BATCH_DELAY_MS", "0")
	t.Setenv("SEGMENT_CACHE_TTL", "1234")
	t.Setenv("NEXT_PUBLIC_BASE_URL", "https://base.test")
	t.Setenv("EMAIL_PROVIDER", "resend")
	t.Setenv("RESEND_API_KEY", "rs")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Delivery.BatchSize)
	assert.Equal(t, 0, cfg.Delivery.BatchDelayMs, "explicit zero delay must stick")
	assert.Equal(t, 1234, cfg.Segments.CacheTTLMs)
	assert.Equal(t, "https://base.test", cfg.Tracking.BaseURL)
	assert.Equal(t, "resend", cfg.Provider.Name)
	assert.Equal(t, "rs", cfg.Provider.ResendAPIKey)
}

func TestLoadFromEnvFeedOverrides(t *testing.T) {
	t.Setenv("RSS_FEED_URL", "https://blog.example/rss")
	t.Setenv("RSS_SHOP", "acme")
	t.Setenv("RSS_SEGMENT", "subscribers")
	t.Setenv("RSS_MAX_ITEMS", "3")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example/rss", cfg.Content.FeedURL)
	assert.Equal(t, "acme", cfg.Content.Shop)
	assert.Equal(t, "subscribers", cfg.Content.Segment)
	assert.Equal(t, 3, cfg.Content.MaxItems)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("EMAIL_BATCH_SIZE", "not-a-number")
	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Delivery.BatchSize)
}
