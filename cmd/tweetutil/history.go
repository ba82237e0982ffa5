package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"tweetutil/pkg/ui"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show archived search and timeline runs",
	Long: `List the most recent runs recorded in the archive, or print the
tweets collected by one run.

The archive is enabled by setting archive.path in the configuration,
TWEETUTIL_ARCHIVE_PATH, or the --archive flag.`,
	Example: `  tweetutil history --archive tweets.db
  tweetutil history --archive tweets.db 2b0f6c1e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	a, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if a == nil {
		return errors.New("no archive configured, set archive.path or pass --archive")
	}
	defer a.Close()

	ctx := context.Background()

	if len(args) == 1 {
		posts, err := a.RunPosts(ctx, args[0])
		if err != nil {
			return err
		}
		ui.PrintTweets(posts)
		return nil
	}

	runs, err := a.Runs(ctx, historyLimit)
	if err != nil {
		return err
	}
	total, err := a.CountPosts(ctx)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		ui.PrintInfo("No runs recorded", cfg.Archive.Path)
		return nil
	}

	ui.PrintHighlight("Archived runs")
	for _, r := range runs {
		finished := "running"
		if !r.FinishedAt.IsZero() {
			finished = r.FinishedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(ui.Out, "%s  %-8s %-14s %5d  %s  %s\n",
			ui.Dim(r.ID),
			r.Kind,
			r.StopReason,
			r.PostCount,
			finished,
			ui.Cyan(r.Query),
		)
	}
	ui.PrintInfo("Archived tweets", strconv.Itoa(total))
	return nil
}
