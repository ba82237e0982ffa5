package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"tweetutil/pkg/archive"
	"tweetutil/pkg/auth"
	"tweetutil/pkg/config"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/twitter"
	"tweetutil/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	accountName string
	archivePath string
	quiet       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tweetutil",
	Short: "Post, search and archive tweets from the command line",
	Long: `tweetutil is a small Twitter API client.

Features:
  - Post a status with an optional image, or reply to a tweet
  - Page through recent or full-archive search with a place filter
  - Resume interrupted searches from a checkpoint
  - Pull your home timeline
  - Keep every collected post in a local SQLite archive
  - Store API keys in the system keychain or an encrypted file`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.Out = nopWriter{}
			return
		}
		if cmd.Name() != "help" && cmd.Name() != "version" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Red("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./tweetutil.yaml or $HOME/.config/tweetutil/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	rootCmd.PersistentFlags().StringVar(&archivePath, "archive", "", "SQLite archive for collected posts")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress terminal output except errors")

	rootCmd.SetVersionTemplate(`tweetutil {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// loadConfig loads configuration with the global flags merged in and
// initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if archivePath != "" {
		flags["archive"] = archivePath
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Debug("tweetutil starting")
	return cfg, nil
}

// resolveCredentials fills missing API keys in cfg from the credential
// store: the --account flag first, then configuration and environment,
// then the default stored account.
func resolveCredentials(cfg *config.Config) error {
	if accountName == "" && (cfg.HasUserCredentials() || cfg.HasAppCredentials()) {
		logger.Debug("Using credentials from configuration")
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
		if err != nil {
			return fmt.Errorf("account %q not found, run 'tweetutil auth list' to see stored accounts", accountName)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return errors.New("no Twitter credentials found, run 'tweetutil auth login' or set CONSUMER_KEY, CONSUMER_SECRET, TWITTER_ACCOUNT_TOKEN and TWITTER_ACCOUNT_SECRET")
		}
		if err != nil {
			return err
		}
	}

	applyAccount(cfg, account)
	logger.GetLogger().DebugWithFields("Using stored credentials", map[string]interface{}{
		"account":      account.Name,
		"consumer_key": account.ConsumerKey,
		"bearer_token": account.BearerToken,
	})
	return nil
}

// applyAccount copies account keys into cfg where cfg has none
func applyAccount(cfg *config.Config, account *auth.Account) {
	t := &cfg.Twitter
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&t.ConsumerKey, account.ConsumerKey)
	fill(&t.ConsumerSecret, account.ConsumerSecret)
	fill(&t.AccessToken, account.AccessToken)
	fill(&t.AccessSecret, account.AccessSecret)
	fill(&t.BearerToken, account.BearerToken)
	fill(&t.User, account.Handle)
}

func clientOptions(cfg *config.Config) []twitter.Option {
	return []twitter.Option{
		twitter.WithBaseURL(cfg.Twitter.APIBaseURL),
		twitter.WithUploadURL(cfg.Twitter.UploadBaseURL),
		twitter.WithTimeout(cfg.Twitter.Timeout),
		twitter.WithLogger(logger.GetLogger()),
	}
}

// userClient returns an OAuth 1.0a client for posting and the home timeline
func userClient(ctx context.Context, cfg *config.Config) (*twitter.Client, error) {
	if !cfg.HasUserCredentials() {
		return nil, errors.New("this command needs user credentials: consumer key/secret and access token/secret")
	}
	t := cfg.Twitter
	creds := twitter.Credentials{
		ConsumerKey:    t.ConsumerKey,
		ConsumerSecret: t.ConsumerSecret,
		AccessToken:    t.AccessToken,
		AccessSecret:   t.AccessSecret,
	}
	return twitter.NewUserClient(ctx, creds, clientOptions(cfg)...), nil
}

// searchClient prefers the app bearer token and falls back to user context
func searchClient(ctx context.Context, cfg *config.Config) (*twitter.Client, error) {
	if cfg.HasAppCredentials() {
		return twitter.NewAppClient(ctx, cfg.Twitter.BearerToken, clientOptions(cfg)...), nil
	}
	return userClient(ctx, cfg)
}

// openArchive opens the configured archive; a nil archive means none is configured
func openArchive(cfg *config.Config) (*archive.Archive, error) {
	if cfg.Archive.Path == "" {
		return nil, nil
	}
	a, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return a, nil
}
