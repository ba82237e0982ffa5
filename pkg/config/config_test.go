package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.twitter.com", cfg.Twitter.APIBaseURL)
	assert.Equal(t, "https://upload.twitter.com", cfg.Twitter.UploadBaseURL)
	assert.True(t, cfg.Post.Enabled)

	assert.Equal(t, "recent", cfg.Search.Endpoint)
	assert.Equal(t, 100, cfg.Search.PageSize)
	assert.Equal(t, 3, cfg.Search.MaxEmptyPages)
	assert.Equal(t, 2*time.Second, cfg.Search.PageDelay)

	assert.Equal(t, 800, cfg.Timeline.Count)
	assert.Equal(t, 200, cfg.Timeline.PageSize)
	assert.Equal(t, 4, cfg.Timeline.MaxQueries)
	assert.True(t, cfg.Timeline.ExcludeReplies)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Retry.RateLimitDelay)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "bearer")
	t.Setenv("CONSUMER_KEY", "ck")
	t.Setenv("CONSUMER_SECRET", "cs")
	t.Setenv("TWITTER_ACCOUNT_TOKEN", "at")
	t.Setenv("TWITTER_ACCOUNT_SECRET", "as")
	t.Setenv("TWITTER_USER", "@someone")
	t.Setenv("TWEETUTIL_POST_ENABLED", "false")
	t.Setenv("TWEETUTIL_PAGE_DELAY", "250ms")
	t.Setenv("TWEETUTIL_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "bearer", cfg.Twitter.BearerToken)
	assert.Equal(t, "@someone", cfg.Twitter.User)
	assert.True(t, cfg.HasUserCredentials())
	assert.True(t, cfg.HasAppCredentials())
	assert.False(t, cfg.Post.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.PageDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeline.PageDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("TWEETUTIL_POST_ENABLED", "maybe")
	t.Setenv("TWEETUTIL_MAX_ATTEMPTS", "three")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWEETUTIL_POST_ENABLED")
	assert.Contains(t, err.Error(), "TWEETUTIL_MAX_ATTEMPTS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad endpoint", func(c *Config) { c.Search.Endpoint = "archive" }},
		{"recent page too large", func(c *Config) { c.Search.PageSize = 200 }},
		{"page too small", func(c *Config) { c.Search.PageSize = 5 }},
		{"no target", func(c *Config) { c.Search.TargetCount = 0 }},
		{"no empty pages", func(c *Config) { c.Search.MaxEmptyPages = 0 }},
		{"negative delay", func(c *Config) { c.Search.PageDelay = -time.Second }},
		{"timeline page too large", func(c *Config) { c.Timeline.PageSize = 500 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"window missing", func(c *Config) { c.RateLimit.Window = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("full archive allows larger pages", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Search.Endpoint = "all"
		cfg.Search.PageSize = 500
		assert.NoError(t, cfg.Validate())
	})
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":          "/tmp/out.json",
		"place":           "Seattle",
		"count":           250,
		"max-empty-pages": 5,
		"page-delay":      time.Second,
		"post-enabled":    false,
		"log-level":       "error",
		"archive":         "/tmp/tweets.db",
	})

	assert.Equal(t, "/tmp/out.json", cfg.Search.Output)
	assert.Equal(t, "Seattle", cfg.Search.Place)
	assert.Equal(t, 250, cfg.Search.TargetCount)
	assert.Equal(t, 5, cfg.Search.MaxEmptyPages)
	assert.Equal(t, time.Second, cfg.Search.PageDelay)
	assert.False(t, cfg.Post.Enabled)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "/tmp/tweets.db", cfg.Archive.Path)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "tweetutil.yaml")

	cfg := DefaultConfig()
	cfg.Twitter.User = "@saved"
	cfg.Search.Place = "Portland"
	cfg.Search.PageDelay = 3 * time.Second

	require.NoError(t, cfg.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, "@saved", loaded.Twitter.User)
	assert.Equal(t, "Portland", loaded.Search.Place)
	assert.Equal(t, 3*time.Second, loaded.Search.PageDelay)
}

func TestLoadFromFileDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tweetutil.yaml")
	content := `
search:
  page_delay: 500ms
  max_empty_pages: 7
retry:
  rate_limit_delay: 2m
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, 500*time.Millisecond, cfg.Search.PageDelay)
	assert.Equal(t, 7, cfg.Search.MaxEmptyPages)
	assert.Equal(t, 2*time.Minute, cfg.Retry.RateLimitDelay)
	// Untouched sections keep their defaults
	assert.Equal(t, 800, cfg.Timeline.Count)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
