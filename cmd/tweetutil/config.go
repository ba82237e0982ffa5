package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"tweetutil/pkg/config"
	"tweetutil/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tweetutil configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'tweetutil.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

API keys are masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# tweetutil configuration file
#
# API keys can also come from the environment:
#   BEARER_TOKEN, CONSUMER_KEY, CONSUMER_SECRET,
#   TWITTER_ACCOUNT_TOKEN, TWITTER_ACCOUNT_SECRET, TWITTER_USER
# or from 'tweetutil auth login'.

twitter:
  consumer_key: ""
  consumer_secret: ""
  access_token: ""
  access_secret: ""
  # App-only token, preferred for search
  bearer_token: ""
  # Your handle, used to prefix replies
  user: ""
  api_base_url: "https://api.twitter.com"
  upload_base_url: "https://upload.twitter.com"
  timeout: 30s

post:
  # false logs "Would have tweeted: ..." instead of posting
  enabled: true

search:
  # recent (last 7 days) or all (full archive)
  endpoint: recent
  # results per request: 10-100 for recent, up to 500 for all
  page_size: 100
  target_count: 100
  # stop after this many pages in a row keep nothing
  max_empty_pages: 3
  page_delay: 2s
  place: ""
  output: search_results.json
  checkpoints: true

timeline:
  count: 800
  page_size: 200
  max_queries: 4
  exclude_replies: true
  page_delay: 2s

rate_limit:
  # 0 disables the window budget
  requests_per_window: 180
  window: 15m

retry:
  enabled: true
  max_attempts: 3
  network_delay: 5s
  server_error_delay: 10s
  rate_limit_delay: 60s
  max_rate_limit_wait: 15m

archive:
  # SQLite file recording every collected tweet; empty disables it
  path: ""

logging:
  level: info
  # text or json
  format: text
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "tweetutil.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Out, "\nNext steps:")
	fmt.Fprintln(ui.Out, "1. Run 'tweetutil auth login' or add your keys to the file")
	fmt.Fprintln(ui.Out, "2. Run 'tweetutil config validate' to check the configuration")
	fmt.Fprintln(ui.Out, "3. Try 'tweetutil search golang --count 20'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(maskedConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, string(data))
	return nil
}

// maskedConfig returns a copy of cfg with API keys masked
func maskedConfig(cfg *config.Config) *config.Config {
	c := *cfg
	for _, s := range []*string{
		&c.Twitter.ConsumerKey,
		&c.Twitter.ConsumerSecret,
		&c.Twitter.AccessToken,
		&c.Twitter.AccessSecret,
		&c.Twitter.BearerToken,
	} {
		*s = mask(*s)
	}
	return &c
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var warnings []string
	if !cfg.HasUserCredentials() {
		warnings = append(warnings, "no user keys configured; post and timeline will use stored accounts")
	}
	if !cfg.HasAppCredentials() {
		warnings = append(warnings, "no bearer token configured; search will use user keys")
	}

	var problems []error
	if cfg.Search.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Search.Output), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create output directory: %w", err))
		}
	}
	if cfg.Archive.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Archive.Path), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create archive directory: %w", err))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return err
	}

	for _, w := range warnings {
		ui.PrintWarning(w)
	}
	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Out, "\nConfiguration summary:")
	fmt.Fprintf(ui.Out, "  Search endpoint: %s (%d per page)\n", cfg.Search.Endpoint, cfg.Search.PageSize)
	fmt.Fprintf(ui.Out, "  Target count: %d\n", cfg.Search.TargetCount)
	fmt.Fprintf(ui.Out, "  Rate limit: %d requests per %s\n", cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
	fmt.Fprintf(ui.Out, "  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(ui.Out, "  Posting enabled: %t\n", cfg.Post.Enabled)
	fmt.Fprintf(ui.Out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
