package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/poster"
	"tweetutil/pkg/retry"
	"tweetutil/pkg/twitter"
	"tweetutil/pkg/ui"
)

var (
	postImage       string
	postReplyTo     string
	postReplyHandle string
	postDryRun      bool
)

// postCmd represents the post command
var postCmd = &cobra.Command{
	Use:   "post <text>",
	Short: "Post a status, optionally with an image or as a reply",
	Long: `Post a status to the authenticated account.

Posting can be switched off with post.enabled: false in the configuration
or TWEETUTIL_POST_ENABLED=false; the text is then only logged.`,
	Example: `  # Plain status
  tweetutil post "hello world"

  # Status with an image
  tweetutil post "sunset" --image ./sunset.jpg

  # Reply to a tweet
  tweetutil post "agreed" --reply-to 1234567890 --reply-handle someone

  # See what would be posted
  tweetutil post "hello world" --dry-run`,
	Args: cobra.ArbitraryArgs,
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().StringVarP(&postImage, "image", "i", "", "image file to attach")
	postCmd.Flags().StringVarP(&postReplyTo, "reply-to", "r", "", "id of the tweet to reply to")
	postCmd.Flags().StringVar(&postReplyHandle, "reply-handle", "", "handle to mention in a reply (default: twitter.user)")
	postCmd.Flags().BoolVar(&postDryRun, "dry-run", false, "log the status instead of posting it")
}

func runPost(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" && postImage == "" {
		return poster.ErrEmptyStatus
	}

	flags := make(map[string]interface{})
	if postDryRun {
		flags["post-enabled"] = false
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.GetLogger().WithField("component", "post")
	req := poster.Request{
		Text:        text,
		ImagePath:   postImage,
		InReplyTo:   postReplyTo,
		ReplyHandle: postReplyHandle,
		Enabled:     cfg.Post.Enabled,
	}

	// A dry run needs no credentials
	var client poster.Client = disabledClient{}
	if req.Enabled {
		if err := resolveCredentials(cfg); err != nil {
			return err
		}
		c, err := userClient(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
	}

	p := poster.New(client,
		poster.WithReplyHandle(cfg.Twitter.User),
		poster.WithRetry(retry.FromConfig(&cfg.Retry, log)),
		poster.WithLogger(log),
	)

	id, err := p.Post(ctx, req)
	if err != nil {
		return err
	}
	if id == "" {
		ui.PrintWarning("Posting is disabled, nothing was sent")
		return nil
	}

	ui.PrintSuccess("Posted")
	ui.PrintInfo("ID", id)
	ui.PrintInfo("URL", twitter.TweetURL(cfg.Twitter.User, id))
	return nil
}

// disabledClient backs dry runs; Poster never calls it when posting is off
type disabledClient struct{}

var errPostingDisabled = errors.New("posting is disabled")

func (disabledClient) UpdateStatus(context.Context, twitter.StatusUpdate) (*twitter.Tweet, error) {
	return nil, errPostingDisabled
}

func (disabledClient) UploadMedia(context.Context, string, io.Reader) (*twitter.Media, error) {
	return nil, errPostingDisabled
}
