// Package timeline pulls the authenticated user's home timeline by walking
// backwards with max_id.
package timeline

import (
	"context"
	"errors"
	"fmt"

	"tweetutil/pkg/archive"
	"tweetutil/pkg/config"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/ratelimit"
	"tweetutil/pkg/retry"
	"tweetutil/pkg/storage"
	"tweetutil/pkg/twitter"
)

// Client defines the timeline endpoint used by Fetcher
type Client interface {
	HomeTimeline(ctx context.Context, p twitter.TimelineParams) ([]twitter.Tweet, error)
}

// Archiver records fetched posts per run. *archive.Archive satisfies it.
type Archiver interface {
	StartRun(ctx context.Context, kind archive.Kind, query string) (string, error)
	SavePosts(ctx context.Context, runID string, tweets []twitter.Tweet) (int, error)
	FinishRun(ctx context.Context, runID string, count int, reason string) error
}

// StopReason explains why a fetch ended
type StopReason string

const (
	StopCountReached StopReason = "count_reached"
	StopEmptyPage    StopReason = "empty_page"
	StopMaxQueries   StopReason = "max_queries"
	StopGaveUp       StopReason = "gave_up"
	StopCancelled    StopReason = "cancelled"
	StopFailed       StopReason = "failed"
)

// ErrInvalidCount is returned for a non-positive count
var ErrInvalidCount = errors.New("count must be positive")

// Result holds the collected posts, newest first
type Result struct {
	Tweets     []twitter.Tweet
	Queries    int
	StopReason StopReason
	RunID      string
}

// Fetcher pages through the home timeline
type Fetcher struct {
	client         Client
	pageSize       int
	maxQueries     int
	excludeReplies bool
	limiter        ratelimit.Limiter
	retry          *retry.Config
	archive        Archiver
	logger         logger.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithPageSize sets the count requested per call, capped at 200
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = min(n, twitter.MaxTimelineCount)
		}
	}
}

// WithMaxQueries bounds the number of calls per fetch
func WithMaxQueries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxQueries = n
		}
	}
}

// WithReplies includes replies in the timeline
func WithReplies(include bool) Option {
	return func(f *Fetcher) { f.excludeReplies = !include }
}

// WithLimiter paces requests
func WithLimiter(l ratelimit.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRetry sets the per-call retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithArchive records fetched posts in a
func WithArchive(a Archiver) Option {
	return func(f *Fetcher) { f.archive = a }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher requesting 200 posts per call, at most 4 calls,
// replies excluded.
func New(client Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         client,
		pageSize:       twitter.MaxTimelineCount,
		maxQueries:     4,
		excludeReplies: true,
		limiter:        ratelimit.NewChain(),
		logger:         logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.retry == nil {
		f.retry = retry.FromConfig(&config.DefaultConfig().Retry, f.logger)
	}
	return f
}

// NewFromConfig creates a Fetcher from the timeline, rate limit and retry sections
func NewFromConfig(client Client, cfg *config.Config, log logger.Logger, opts ...Option) *Fetcher {
	base := []Option{
		WithPageSize(cfg.Timeline.PageSize),
		WithMaxQueries(cfg.Timeline.MaxQueries),
		WithReplies(!cfg.Timeline.ExcludeReplies),
		WithLimiter(ratelimit.New(cfg.RateLimit, cfg.Timeline.PageDelay)),
		WithRetry(retry.FromConfig(&cfg.Retry, log)),
		WithLogger(log),
	}
	return New(client, append(base, opts...)...)
}

// Fetch collects up to count posts. It stops early when a call returns no
// posts or the query budget is spent. On failure the posts collected so far
// are returned with the error.
func (f *Fetcher) Fetch(ctx context.Context, count int) (*Result, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	log := f.logger.WithFields(map[string]interface{}{
		"component": "timeline",
		"count":     count,
	})
	res := &Result{}

	runID := f.startRun(ctx, log)
	res.RunID = runID

	err := f.loop(ctx, log, res, count, runID)

	if runID != "" {
		if ferr := f.archive.FinishRun(context.WithoutCancel(ctx), runID, len(res.Tweets), string(res.StopReason)); ferr != nil {
			log.WithError(ferr).Warn("Failed to finish archive run")
		}
	}

	fields := map[string]interface{}{
		"collected":   len(res.Tweets),
		"queries":     res.Queries,
		"stop_reason": string(res.StopReason),
	}
	if err != nil {
		log.WithError(err).WarnWithFields("Timeline fetch stopped early", fields)
		return res, err
	}
	log.InfoWithFields("Timeline fetched", fields)
	return res, nil
}

func (f *Fetcher) loop(ctx context.Context, log logger.Logger, res *Result, count int, runID string) error {
	// replies are dropped after counting, so always ask for a full page
	params := twitter.TimelineParams{Count: f.pageSize, ExcludeReplies: f.excludeReplies}

	for {
		if len(res.Tweets) >= count {
			res.StopReason = StopCountReached
			return nil
		}
		if res.Queries >= f.maxQueries {
			res.StopReason = StopMaxQueries
			return nil
		}

		if err := f.limiter.Wait(ctx); err != nil {
			res.StopReason = StopCancelled
			return err
		}

		page, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]twitter.Tweet, error) {
			return f.client.HomeTimeline(ctx, params)
		}, f.retry)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				res.StopReason = StopCancelled
			case errors.Is(err, retry.ErrGaveUp):
				res.StopReason = StopGaveUp
			default:
				res.StopReason = StopFailed
			}
			return fmt.Errorf("timeline query %d: %w", res.Queries+1, err)
		}
		res.Queries++

		log.DebugWithFields("Timeline page fetched", map[string]interface{}{
			"query":  res.Queries,
			"count":  len(page),
			"max_id": params.MaxID,
		})
		if len(page) == 0 {
			res.StopReason = StopEmptyPage
			return nil
		}

		if room := count - len(res.Tweets); len(page) > room {
			page = page[:room]
		}
		res.Tweets = append(res.Tweets, page...)

		if runID != "" {
			if _, err := f.archive.SavePosts(ctx, runID, page); err != nil {
				log.WithError(err).Warn("Failed to archive posts")
			}
		}

		maxID, err := twitter.PrecedingID(page[len(page)-1].ID)
		if err != nil {
			res.StopReason = StopFailed
			return fmt.Errorf("timeline paging: %w", err)
		}
		params.MaxID = maxID
	}
}

func (f *Fetcher) startRun(ctx context.Context, log logger.Logger) string {
	if f.archive == nil {
		return ""
	}
	runID, err := f.archive.StartRun(ctx, archive.KindTimeline, "home")
	if err != nil {
		log.WithError(err).Warn("Archive unavailable, continuing without it")
		return ""
	}
	return runID
}

// Save writes the fetched posts to path as a JSON array
func (r *Result) Save(path string) error {
	store, err := storage.NewManager(path)
	if err != nil {
		return err
	}
	return store.Save(r.Tweets)
}
