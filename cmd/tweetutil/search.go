package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	errs "tweetutil/pkg/errors"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/retry"
	"tweetutil/pkg/search"
	"tweetutil/pkg/ui"
)

var (
	searchCount         int
	searchPlace         string
	searchOutput        string
	searchEndpoint      string
	searchMaxEmptyPages int
	searchPageDelay     time.Duration
	searchResume        bool
	searchNoCheckpoint  bool
	searchShow          bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Collect tweets matching a query into a JSON file",
	Long: `Page through the search endpoint until the target count is reached,
the results run out, or several pages in a row add nothing.

Results are rewritten to the output file after every page. If the run stops
early, --resume continues from the last page instead of starting over.`,
	Example: `  # 200 tweets about golang
  tweetutil search golang --count 200 --output golang.json

  # Only keep tweets that look like they come from Berlin
  tweetutil search "#coffee" --place Berlin

  # Full-archive search (needs academic access)
  tweetutil search "from:golang" --endpoint all --count 1000

  # Continue an interrupted search
  tweetutil search golang --count 200 --output golang.json --resume`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchCount, "count", "n", 0, "number of tweets to collect (default: search.target_count)")
	searchCmd.Flags().StringVarP(&searchPlace, "place", "p", "", "keep only tweets that look related to this place")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "JSON file for results (default: search.output)")
	searchCmd.Flags().StringVar(&searchEndpoint, "endpoint", "", "search endpoint: recent or all")
	searchCmd.Flags().IntVar(&searchMaxEmptyPages, "max-empty-pages", 0, "stop after this many pages in a row keep nothing")
	searchCmd.Flags().DurationVar(&searchPageDelay, "page-delay", -1, "minimum delay between requests")
	searchCmd.Flags().BoolVar(&searchResume, "resume", false, "continue from the last checkpoint")
	searchCmd.Flags().BoolVar(&searchNoCheckpoint, "no-checkpoint", false, "do not write a resume checkpoint")
	searchCmd.Flags().BoolVar(&searchShow, "show", false, "print the collected tweets")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	flags := map[string]interface{}{
		"count":           searchCount,
		"output":          searchOutput,
		"endpoint":        searchEndpoint,
		"max-empty-pages": searchMaxEmptyPages,
		"page-delay":      searchPageDelay,
	}
	if cmd.Flags().Changed("place") {
		flags["place"] = searchPlace
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if searchNoCheckpoint {
		cfg.Search.Checkpoints = false
	}
	if searchResume && !cfg.Search.Checkpoints {
		return errors.New("--resume needs checkpoints enabled")
	}

	if err := resolveCredentials(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := searchClient(ctx, cfg)
	if err != nil {
		return err
	}

	log := logger.GetLogger().WithField("component", "search")
	progress := ui.NewSearchProgress(query, cfg.Search.TargetCount, strings.EqualFold(cfg.Logging.Level, "debug"))

	retryCfg := retry.FromConfig(&cfg.Retry, log)
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit {
			progress.RateLimitWarning(delay)
		}
	}

	opts := []search.Option{
		search.WithRetry(retryCfg),
		search.WithProgress(func(s search.PageStats) {
			progress.Page(s.Page, s.Received, s.Kept, s.Collected, s.EmptyRun)
		}),
	}
	a, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if a != nil {
		defer a.Close()
		opts = append(opts, search.WithArchive(a))
	}

	ui.PrintInfo("Query", query)
	if cfg.Search.Place != "" {
		ui.PrintInfo("Place", cfg.Search.Place)
	}

	fetcher := search.NewFromConfig(client, cfg, log, opts...)
	res, err := fetcher.Fetch(ctx, search.Query{
		Text:   query,
		Target: cfg.Search.TargetCount,
		Place:  cfg.Search.Place,
		Output: cfg.Search.Output,
		Resume: searchResume,
	})
	if res != nil {
		progress.Complete(string(res.StopReason), cfg.Search.Output)
		if searchShow {
			fmt.Fprintln(ui.Out)
			ui.PrintTweets(res.Tweets)
		}
	}
	if err != nil {
		if res != nil && !res.StopReason.Complete() && cfg.Search.Checkpoints {
			ui.PrintWarning("Partial results kept, rerun with --resume to continue")
		}
		return err
	}
	return nil
}
