package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for tweetutil
type Config struct {
	// Twitter API credentials and endpoints
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Posting behaviour
	Post PostConfig `yaml:"post" json:"post"`

	// Batch search settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Home timeline settings
	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for transient failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Optional SQLite archive
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TwitterConfig holds credentials and API locations
type TwitterConfig struct {
	ConsumerKey    string        `yaml:"consumer_key" json:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret" json:"consumer_secret"`
	AccessToken    string        `yaml:"access_token" json:"access_token"`
	AccessSecret   string        `yaml:"access_secret" json:"access_secret"`
	BearerToken    string        `yaml:"bearer_token" json:"bearer_token"`
	User           string        `yaml:"user" json:"user"`
	APIBaseURL     string        `yaml:"api_base_url" json:"api_base_url"`
	UploadBaseURL  string        `yaml:"upload_base_url" json:"upload_base_url"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
}

// PostConfig controls the poster
type PostConfig struct {
	// Enabled false turns every post into a logged dry run
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// SearchConfig holds batch search settings
type SearchConfig struct {
	Endpoint      string        `yaml:"endpoint" json:"endpoint"` // recent or all
	PageSize      int           `yaml:"page_size" json:"page_size"`
	TargetCount   int           `yaml:"target_count" json:"target_count"`
	MaxEmptyPages int           `yaml:"max_empty_pages" json:"max_empty_pages"`
	PageDelay     time.Duration `yaml:"page_delay" json:"page_delay"`
	Place         string        `yaml:"place" json:"place"`
	Output        string        `yaml:"output" json:"output"`
	Checkpoints   bool          `yaml:"checkpoints" json:"checkpoints"`
}

// TimelineConfig holds home timeline settings
type TimelineConfig struct {
	Count          int           `yaml:"count" json:"count"`
	PageSize       int           `yaml:"page_size" json:"page_size"`
	MaxQueries     int           `yaml:"max_queries" json:"max_queries"`
	ExcludeReplies bool          `yaml:"exclude_replies" json:"exclude_replies"`
	PageDelay      time.Duration `yaml:"page_delay" json:"page_delay"`
}

// RateLimitConfig holds the request window budget
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window" json:"requests_per_window"`
	Window            time.Duration `yaml:"window" json:"window"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts      int           `yaml:"max_attempts" json:"max_attempts"`
	NetworkDelay     time.Duration `yaml:"network_delay" json:"network_delay"`
	ServerErrorDelay time.Duration `yaml:"server_error_delay" json:"server_error_delay"`
	RateLimitDelay   time.Duration `yaml:"rate_limit_delay" json:"rate_limit_delay"`
	// MaxRateLimitWait caps server-provided reset times
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait" json:"max_rate_limit_wait"`
}

// ArchiveConfig holds the SQLite archive location
type ArchiveConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			APIBaseURL:    "https://api.twitter.com",
			UploadBaseURL: "https://upload.twitter.com",
			Timeout:       30 * time.Second,
		},
		Post: PostConfig{
			Enabled: true,
		},
		Search: SearchConfig{
			Endpoint:      "recent",
			PageSize:      100,
			TargetCount:   100,
			MaxEmptyPages: 3,
			PageDelay:     2 * time.Second,
			Output:        "search_results.json",
			Checkpoints:   true,
		},
		Timeline: TimelineConfig{
			Count:          800,
			PageSize:       200,
			MaxQueries:     4,
			ExcludeReplies: true,
			PageDelay:      2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 180,
			Window:            15 * time.Minute,
		},
		Retry: RetryConfig{
			Enabled:          true,
			MaxAttempts:      3,
			NetworkDelay:     5 * time.Second,
			ServerErrorDelay: 10 * time.Second,
			RateLimitDelay:   60 * time.Second,
			MaxRateLimitWait: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Credential variables use the names the Twitter developer portal suggests.
func (c *Config) LoadFromEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("BEARER_TOKEN", &c.Twitter.BearerToken)
	setString("CONSUMER_KEY", &c.Twitter.ConsumerKey)
	setString("CONSUMER_SECRET", &c.Twitter.ConsumerSecret)
	setString("TWITTER_ACCOUNT_TOKEN", &c.Twitter.AccessToken)
	setString("TWITTER_ACCOUNT_SECRET", &c.Twitter.AccessSecret)
	setString("TWITTER_USER", &c.Twitter.User)

	setString("TWEETUTIL_API_BASE_URL", &c.Twitter.APIBaseURL)
	setString("TWEETUTIL_UPLOAD_BASE_URL", &c.Twitter.UploadBaseURL)
	setString("TWEETUTIL_SEARCH_OUTPUT", &c.Search.Output)
	setString("TWEETUTIL_SEARCH_PLACE", &c.Search.Place)
	setString("TWEETUTIL_ARCHIVE_PATH", &c.Archive.Path)
	setString("TWEETUTIL_LOG_LEVEL", &c.Logging.Level)
	setString("TWEETUTIL_LOG_FILE", &c.Logging.File)

	var errs []error

	if v := os.Getenv("TWEETUTIL_POST_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWEETUTIL_POST_ENABLED: %w", err))
		} else {
			c.Post.Enabled = enabled
		}
	}

	if v := os.Getenv("TWEETUTIL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWEETUTIL_MAX_ATTEMPTS: %w", err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}

	if v := os.Getenv("TWEETUTIL_PAGE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWEETUTIL_PAGE_DELAY: %w", err))
		} else {
			c.Search.PageDelay = d
			c.Timeline.PageDelay = d
		}
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"tweetutil.yaml",
		".tweetutil.yaml",
		".tweetutil.yml",
		filepath.Join(home, ".config", "tweetutil", "config.yaml"),
		filepath.Join(home, ".tweetutil.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// Credentials are checked per command since search and post need different ones.
func (c *Config) Validate() error {
	var errs []error

	if c.Twitter.APIBaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	}
	if c.Twitter.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	switch c.Search.Endpoint {
	case "recent", "all":
	default:
		errs = append(errs, fmt.Errorf("search endpoint must be recent or all, got %q", c.Search.Endpoint))
	}
	if c.Search.PageSize < 10 || c.Search.PageSize > 500 {
		errs = append(errs, errors.New("search page size must be between 10 and 500"))
	}
	if c.Search.Endpoint == "recent" && c.Search.PageSize > 100 {
		errs = append(errs, errors.New("recent search page size cannot exceed 100"))
	}
	if c.Search.TargetCount <= 0 {
		errs = append(errs, errors.New("search target count must be positive"))
	}
	if c.Search.MaxEmptyPages <= 0 {
		errs = append(errs, errors.New("max empty pages must be positive"))
	}
	if c.Search.PageDelay < 0 || c.Timeline.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}

	if c.Timeline.PageSize <= 0 || c.Timeline.PageSize > 200 {
		errs = append(errs, errors.New("timeline page size must be between 1 and 200"))
	}
	if c.Timeline.MaxQueries <= 0 {
		errs = append(errs, errors.New("timeline max queries must be positive"))
	}

	if c.RateLimit.RequestsPerWindow < 0 {
		errs = append(errs, errors.New("requests per window cannot be negative"))
	}
	if c.RateLimit.RequestsPerWindow > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("max attempts must be between 1 and 10"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// HasUserCredentials reports whether OAuth 1.0a user credentials are present
func (c *Config) HasUserCredentials() bool {
	t := c.Twitter
	return t.ConsumerKey != "" && t.ConsumerSecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// HasAppCredentials reports whether an app bearer token is present
func (c *Config) HasAppCredentials() bool {
	return c.Twitter.BearerToken != ""
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Search.Output = v
	}
	if v, ok := flags["place"].(string); ok {
		c.Search.Place = v
	}
	if v, ok := flags["count"].(int); ok && v > 0 {
		c.Search.TargetCount = v
	}
	if v, ok := flags["max-empty-pages"].(int); ok && v > 0 {
		c.Search.MaxEmptyPages = v
	}
	if v, ok := flags["endpoint"].(string); ok && v != "" {
		c.Search.Endpoint = v
	}
	if v, ok := flags["page-delay"].(time.Duration); ok && v >= 0 {
		c.Search.PageDelay = v
		c.Timeline.PageDelay = v
	}
	if v, ok := flags["timeline-count"].(int); ok && v > 0 {
		c.Timeline.Count = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["post-enabled"].(bool); ok {
		c.Post.Enabled = v
	}
	if v, ok := flags["archive"].(string); ok && v != "" {
		c.Archive.Path = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tweetutil.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
