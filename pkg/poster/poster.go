// Package poster publishes single status updates with an optional image
// and reply target.
package poster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	errs "tweetutil/pkg/errors"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/retry"
	"tweetutil/pkg/twitter"
)

var (
	// ErrEmptyStatus is returned for a request with neither text nor image
	ErrEmptyStatus = errors.New("status text is empty and no image was given")
	// ErrStatusTooLong is returned when the formatted text exceeds the limit
	ErrStatusTooLong = errors.New("status text is too long")
)

// Client is the part of the Twitter API the poster needs
type Client interface {
	UpdateStatus(ctx context.Context, u twitter.StatusUpdate) (*twitter.Tweet, error)
	UploadMedia(ctx context.Context, filename string, r io.Reader) (*twitter.Media, error)
}

// Request describes one status update
type Request struct {
	Text      string
	ImagePath string
	// InReplyTo is the id of the tweet being replied to
	InReplyTo string
	// ReplyHandle overrides the poster's default reply handle
	ReplyHandle string
	// Enabled false logs what would have been posted and sends nothing
	Enabled bool
}

// Poster posts status updates
type Poster struct {
	client      Client
	replyHandle string
	retry       *retry.Config
	logger      logger.Logger
}

// Option configures a Poster
type Option func(*Poster)

// WithReplyHandle sets the handle prefixed to replies
func WithReplyHandle(handle string) Option {
	return func(p *Poster) { p.replyHandle = handle }
}

// WithRetry sets the retry configuration for API calls
func WithRetry(cfg *retry.Config) Option {
	return func(p *Poster) { p.retry = cfg }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(p *Poster) { p.logger = l }
}

// New creates a Poster
func New(client Client, opts ...Option) *Poster {
	p := &Poster{
		client: client,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retry == nil {
		p.retry = retry.DefaultConfig()
		p.retry.Logger = p.logger
	}
	return p
}

// Post publishes req and returns the created tweet id. When req.Enabled is
// false it only logs the text and returns an empty id.
func (p *Poster) Post(ctx context.Context, req Request) (string, error) {
	text := req.Text
	if req.InReplyTo != "" {
		handle := req.ReplyHandle
		if handle == "" {
			handle = p.replyHandle
		}
		text = FormatReply(handle, text)
	}

	if strings.TrimSpace(text) == "" && req.ImagePath == "" {
		return "", ErrEmptyStatus
	}
	if n := utf8.RuneCountInString(text); n > twitter.MaxStatusLength {
		return "", fmt.Errorf("%w: %d characters, limit is %d", ErrStatusTooLong, n, twitter.MaxStatusLength)
	}

	log := p.logger.WithFields(map[string]interface{}{
		"in_reply_to": req.InReplyTo,
		"image":       req.ImagePath,
	})

	if !req.Enabled {
		log.Info("Would have tweeted: " + text)
		return "", nil
	}

	// Fail on a bad image path before any request is sent
	var image *os.File
	if req.ImagePath != "" {
		f, err := os.Open(req.ImagePath)
		if err != nil {
			return "", fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		image = f
	}

	update := twitter.StatusUpdate{
		Status:            text,
		InReplyToStatusID: req.InReplyTo,
	}

	if image != nil {
		media, err := p.upload(ctx, image)
		if err != nil {
			return "", err
		}
		update.MediaIDs = []string{media.ID}
		log = log.WithField("media_id", media.ID)
	}

	tweet, err := retry.DoWithResult(ctx, func(ctx context.Context) (*twitter.Tweet, error) {
		return p.client.UpdateStatus(ctx, update)
	}, p.statusRetry())
	if err != nil {
		log.WithError(err).Error("Failed to post status")
		return "", fmt.Errorf("post status: %w", err)
	}

	log.InfoWithFields("Status posted", map[string]interface{}{
		"id":  tweet.ID,
		"url": twitter.TweetURL(authorHandle(tweet), tweet.ID),
	})
	return tweet.ID, nil
}

// upload sends the image, rewinding the file before each attempt
func (p *Poster) upload(ctx context.Context, image *os.File) (*twitter.Media, error) {
	name := filepath.Base(image.Name())
	media, err := retry.DoWithResult(ctx, func(ctx context.Context) (*twitter.Media, error) {
		if _, err := image.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind image: %w", err)
		}
		return p.client.UploadMedia(ctx, name, image)
	}, p.retry)
	if err != nil {
		return nil, fmt.Errorf("upload image %s: %w", name, err)
	}
	return media, nil
}

// statusRetry only retries rate limiting, where the status was certainly
// not created; any other failure could still have produced a post
func (p *Poster) statusRetry() *retry.Config {
	cfg := *p.retry
	cfg.RetryIf = func(err error) bool {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) {
			return apiErr.Type == errs.ErrorTypeRateLimit
		}
		return false
	}
	return &cfg
}

// FormatReply prefixes text with @handle unless it already mentions it first
func FormatReply(handle, text string) string {
	handle = twitter.NormalizeHandle(handle)
	if handle == "" {
		return text
	}

	mention := "@" + handle
	lower := strings.ToLower(text)
	if lower == strings.ToLower(mention) || strings.HasPrefix(lower, strings.ToLower(mention)+" ") {
		return text
	}
	return mention + " " + text
}

func authorHandle(t *twitter.Tweet) string {
	if t.Author == nil {
		return ""
	}
	return t.Author.ScreenName
}
