package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/timeline"
	"tweetutil/pkg/ui"
)

var (
	timelineCount   int
	timelineOutput  string
	timelineReplies bool
)

// timelineCmd represents the timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Fetch your home timeline",
	Long: `Fetch up to --count tweets from the authenticated account's home
timeline, newest first. Replies are excluded unless --replies is given.`,
	Example: `  # Print the latest 50 tweets
  tweetutil timeline --count 50

  # Save the default 800 to a file
  tweetutil timeline --output home.json`,
	Args: cobra.NoArgs,
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().IntVarP(&timelineCount, "count", "n", 0, "number of tweets to fetch (default: timeline.count)")
	timelineCmd.Flags().StringVarP(&timelineOutput, "output", "o", "", "write tweets to this JSON file instead of printing them")
	timelineCmd.Flags().BoolVar(&timelineReplies, "replies", false, "include replies")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{"timeline-count": timelineCount})
	if err != nil {
		return err
	}
	if timelineReplies {
		cfg.Timeline.ExcludeReplies = false
	}
	if err := resolveCredentials(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := userClient(ctx, cfg)
	if err != nil {
		return err
	}

	log := logger.GetLogger().WithField("component", "timeline")
	var opts []timeline.Option
	a, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if a != nil {
		defer a.Close()
		opts = append(opts, timeline.WithArchive(a))
	}

	res, err := timeline.NewFromConfig(client, cfg, log, opts...).Fetch(ctx, cfg.Timeline.Count)
	if res == nil {
		return err
	}

	if timelineOutput != "" {
		if serr := res.Save(timelineOutput); serr != nil {
			return serr
		}
		ui.PrintSuccess("Saved " + strconv.Itoa(len(res.Tweets)) + " tweets to " + timelineOutput)
	} else {
		ui.PrintTweets(res.Tweets)
	}
	return err
}
