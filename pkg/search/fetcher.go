package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tweetutil/pkg/archive"
	"tweetutil/pkg/checkpoint"
	"tweetutil/pkg/config"
	"tweetutil/pkg/logger"
	"tweetutil/pkg/ratelimit"
	"tweetutil/pkg/retry"
	"tweetutil/pkg/storage"
	"tweetutil/pkg/twitter"
)

// StopReason explains why a fetch ended
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopExhausted     StopReason = "exhausted"
	StopStagnated     StopReason = "stagnated"
	StopGaveUp        StopReason = "gave_up"
	StopCancelled     StopReason = "cancelled"
	StopFailed        StopReason = "failed" // non-retryable API error or output write failure
)

// Complete reports whether the search ran to a natural end
func (r StopReason) Complete() bool {
	switch r {
	case StopTargetReached, StopExhausted, StopStagnated:
		return true
	}
	return false
}

var (
	ErrEmptyQuery    = errors.New("search query is empty")
	ErrInvalidTarget = errors.New("target count must be positive")
)

// Query describes one batch search
type Query struct {
	Text   string
	Target int
	Place  string
	// Output is the JSON results file; empty keeps results in memory only
	Output string
	// Resume continues from a saved checkpoint when one exists
	Resume bool
	// Filter overrides PlaceFilter(Place)
	Filter Filter
}

// Result is the outcome of a fetch. It is returned with partial contents
// when the fetch stops on an error.
type Result struct {
	Query      string
	Tweets     []twitter.Tweet
	Pages      int
	StopReason StopReason
	Resumed    bool
	RunID      string
	Elapsed    time.Duration
}

// PageStats is reported to the progress callback after every page
type PageStats struct {
	Page      int
	Received  int
	Kept      int
	Collected int
	Target    int
	EmptyRun  int
}

// Fetcher paginates the search endpoint until a stop condition holds
type Fetcher struct {
	client        Client
	endpoint      string
	pageSize      int
	maxEmptyPages int
	limiter       ratelimit.Limiter
	retry         *retry.Config
	archive       Archiver
	checkpoints   bool
	checkpointDir string
	onPage        func(PageStats)
	logger        logger.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithEndpoint selects "recent" or "all"
func WithEndpoint(endpoint string) Option {
	return func(f *Fetcher) { f.endpoint = endpoint }
}

// WithPageSize sets max_results per request
func WithPageSize(n int) Option {
	return func(f *Fetcher) { f.pageSize = n }
}

// WithMaxEmptyPages sets how many consecutive empty pages end the search
func WithMaxEmptyPages(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxEmptyPages = n
		}
	}
}

// WithLimiter paces requests
func WithLimiter(l ratelimit.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRetry sets the per-page retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithArchive records kept posts in a
func WithArchive(a Archiver) Option {
	return func(f *Fetcher) { f.archive = a }
}

// WithCheckpoints enables resume checkpoints. An empty dir uses the
// user data directory.
func WithCheckpoints(dir string) Option {
	return func(f *Fetcher) {
		f.checkpoints = true
		f.checkpointDir = dir
	}
}

// WithProgress registers a callback invoked after each page
func WithProgress(fn func(PageStats)) Option {
	return func(f *Fetcher) { f.onPage = fn }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher. Without options it requests 100 results per page
// from recent search, stops after 3 empty pages and does not pace requests.
func New(client Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:        client,
		endpoint:      "recent",
		pageSize:      twitter.MaxSearchResults,
		maxEmptyPages: 3,
		limiter:       ratelimit.NewChain(),
		logger:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.retry == nil {
		f.retry = retry.FromConfig(&config.DefaultConfig().Retry, f.logger)
	}
	return f
}

// NewFromConfig creates a Fetcher from the search, rate limit and retry sections
func NewFromConfig(client Client, cfg *config.Config, log logger.Logger, opts ...Option) *Fetcher {
	base := []Option{
		WithEndpoint(cfg.Search.Endpoint),
		WithPageSize(cfg.Search.PageSize),
		WithMaxEmptyPages(cfg.Search.MaxEmptyPages),
		WithLimiter(ratelimit.New(cfg.RateLimit, cfg.Search.PageDelay)),
		WithRetry(retry.FromConfig(&cfg.Retry, log)),
		WithLogger(log),
	}
	if cfg.Search.Checkpoints {
		base = append(base, WithCheckpoints(""))
	}
	return New(client, append(base, opts...)...)
}

// run is the mutable state of one Fetch call
type run struct {
	query       Query
	filter      Filter
	result      *Result
	seen        map[string]bool
	nextToken   string
	emptyStreak int

	store *storage.Manager
	cpMgr *checkpoint.Manager
	cp    *checkpoint.Checkpoint
	runID string
	log   logger.Logger
}

// Fetch runs the search described by q.
//
// Each iteration waits on the limiter, requests one page with retries,
// keeps the posts the filter accepts and persists the accumulated results.
// The loop stops when Target posts are collected, when the endpoint has no
// further pages, or after the configured number of consecutive pages that
// kept nothing. If retries are exhausted the partial result is returned
// together with an error wrapping retry.ErrGaveUp.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (*Result, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	if q.Target <= 0 {
		return nil, ErrInvalidTarget
	}

	r, err := f.start(ctx, q)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	logger.LogComponentStart(r.log, "search", map[string]interface{}{
		"endpoint":  f.endpoint,
		"page_size": f.pageSize,
		"resumed":   r.result.Resumed,
	})

	runErr := f.loop(ctx, r)
	r.result.Elapsed = time.Since(started)
	f.finish(ctx, r)

	fields := map[string]interface{}{
		"collected":   len(r.result.Tweets),
		"pages":       r.result.Pages,
		"stop_reason": string(r.result.StopReason),
		"elapsed":     r.result.Elapsed,
	}
	if runErr != nil {
		r.log.WithError(runErr).WarnWithFields("Search stopped early", fields)
		return r.result, runErr
	}
	r.log.InfoWithFields("Search complete", fields)
	return r.result, nil
}

// start prepares output, checkpoint and archive state for q
func (f *Fetcher) start(ctx context.Context, q Query) (*run, error) {
	r := &run{
		query:  q,
		filter: q.Filter,
		result: &Result{Query: q.Text},
		seen:   make(map[string]bool),
		log: f.logger.WithFields(map[string]interface{}{
			"query":  q.Text,
			"target": q.Target,
			"place":  q.Place,
		}),
	}
	if r.filter == nil {
		r.filter = PlaceFilter(q.Place)
	}

	if q.Output != "" {
		store, err := storage.NewManager(q.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare output: %w", err)
		}
		r.store = store
	}

	if f.checkpoints && r.store != nil {
		if err := f.openCheckpoint(r); err != nil {
			return nil, err
		}
	}

	if f.archive != nil {
		runID, err := f.archive.StartRun(ctx, archive.KindSearch, q.Text)
		if err != nil {
			r.log.WithError(err).Warn("Archive unavailable, continuing without it")
		} else {
			r.runID = runID
			r.result.RunID = runID
		}
	}

	return r, nil
}

// openCheckpoint loads a saved checkpoint when resuming, or starts a new one
func (f *Fetcher) openCheckpoint(r *run) error {
	q := r.query
	key := checkpoint.Key(q.Text, q.Place, q.Output)

	var (
		mgr *checkpoint.Manager
		err error
	)
	if f.checkpointDir != "" {
		mgr, err = checkpoint.NewManagerIn(f.checkpointDir, key)
	} else {
		mgr, err = checkpoint.NewManager(key)
	}
	if err != nil {
		r.log.WithError(err).Warn("Checkpoints unavailable, continuing without them")
		return nil
	}
	mgr.SetLogger(f.logger)
	r.cpMgr = mgr

	if q.Resume {
		cp, err := mgr.Load()
		if err != nil {
			r.log.WithError(err).Warn("Ignoring unreadable checkpoint")
		}
		if cp != nil && cp.NextToken != "" {
			tweets, err := r.store.Load()
			if err != nil {
				return fmt.Errorf("failed to reload results for resume: %w", err)
			}
			if len(tweets) < cp.Collected {
				r.log.WarnWithFields("Results file is missing posts, starting over", map[string]interface{}{
					"expected": cp.Collected,
					"found":    len(tweets),
				})
				return f.newCheckpoint(r, mgr)
			}
			for _, t := range tweets {
				r.seen[t.ID] = true
			}
			r.cp = cp
			r.result.Tweets = tweets
			r.result.Pages = cp.Pages
			r.result.Resumed = true
			r.nextToken = cp.NextToken
			r.emptyStreak = cp.EmptyStreak

			r.log.InfoWithFields("Resuming search from checkpoint", map[string]interface{}{
				"pages":     cp.Pages,
				"collected": len(tweets),
			})
			return nil
		}
	}

	return f.newCheckpoint(r, mgr)
}

// newCheckpoint replaces any saved checkpoint with a fresh one
func (f *Fetcher) newCheckpoint(r *run, mgr *checkpoint.Manager) error {
	q := r.query
	cp, err := mgr.Create(q.Text, q.Place, q.Output)
	if err != nil {
		r.log.WithError(err).Warn("Failed to create checkpoint")
		r.cpMgr = nil
		return nil
	}
	r.cp = cp
	return nil
}

func (f *Fetcher) loop(ctx context.Context, r *run) error {
	res := r.result
	params := twitter.SearchParams{
		Query:      r.query.Text,
		MaxResults: twitter.ClampSearchResults(f.endpoint, f.pageSize),
		Endpoint:   f.endpoint,
	}

	for {
		if len(res.Tweets) >= r.query.Target {
			// A resumed run can hold more than a smaller new target
			trimmed := len(res.Tweets) > r.query.Target
			res.Tweets = res.Tweets[:r.query.Target]
			if trimmed && r.store != nil {
				if err := r.store.Save(res.Tweets); err != nil {
					res.StopReason = StopFailed
					return fmt.Errorf("failed to write results: %w", err)
				}
			}
			res.StopReason = StopTargetReached
			return nil
		}

		if err := f.limiter.Wait(ctx); err != nil {
			res.StopReason = StopCancelled
			return err
		}

		params.NextToken = r.nextToken
		page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*twitter.SearchPage, error) {
			return f.client.Search(ctx, params)
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
			return fmt.Errorf("search page %d: %w", res.Pages+1, err)
		}
		res.Pages++

		kept := r.keep(page.Tweets)
		if len(kept) == 0 {
			r.emptyStreak++
		} else {
			r.emptyStreak = 0
		}
		r.nextToken = page.NextToken

		stats := PageStats{
			Page:      res.Pages,
			Received:  len(page.Tweets),
			Kept:      len(kept),
			Collected: len(res.Tweets),
			Target:    r.query.Target,
			EmptyRun:  r.emptyStreak,
		}
		r.log.DebugWithFields("Search page fetched", map[string]interface{}{
			"page":     stats.Page,
			"received": stats.Received,
			"kept":     stats.Kept,
			"has_next": r.nextToken != "",
		})
		logger.LogSearchProgress(r.log, r.query.Text, res.Pages, len(res.Tweets), r.query.Target)
		if f.onPage != nil {
			f.onPage(stats)
		}

		if err := f.persist(ctx, r, kept); err != nil {
			res.StopReason = StopFailed
			return err
		}

		switch {
		case len(res.Tweets) >= r.query.Target:
			res.StopReason = StopTargetReached
			return nil
		case r.emptyStreak >= f.maxEmptyPages:
			r.log.WarnWithFields("No new posts on consecutive pages, stopping", map[string]interface{}{
				"empty_pages": r.emptyStreak,
			})
			res.StopReason = StopStagnated
			return nil
		case r.nextToken == "":
			res.StopReason = StopExhausted
			return nil
		}
	}
}

// keep appends the new, accepted posts of a page to the result, never
// growing past the target, and returns them
func (r *run) keep(tweets []twitter.Tweet) []twitter.Tweet {
	var kept []twitter.Tweet
	for _, t := range tweets {
		if len(r.result.Tweets) >= r.query.Target {
			break
		}
		if t.ID == "" || r.seen[t.ID] || !r.filter(t) {
			continue
		}
		r.seen[t.ID] = true
		r.result.Tweets = append(r.result.Tweets, t)
		kept = append(kept, t)
	}
	return kept
}

// persist writes the results file, the checkpoint and the archive rows
func (f *Fetcher) persist(ctx context.Context, r *run, kept []twitter.Tweet) error {
	res := r.result

	if r.store != nil {
		if err := r.store.Save(res.Tweets); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
	}

	if r.cpMgr != nil && r.cp != nil {
		if err := r.cpMgr.UpdateProgress(r.cp, r.nextToken, res.Pages, r.emptyStreak, len(res.Tweets)); err != nil {
			r.log.WithError(err).Warn("Failed to save checkpoint")
		}
	}

	if r.runID != "" && len(kept) > 0 {
		if _, err := f.archive.SavePosts(ctx, r.runID, kept); err != nil {
			r.log.WithError(err).Warn("Failed to archive posts")
		}
	}
	return nil
}

// finish closes the archive run and removes the checkpoint of a completed search
func (f *Fetcher) finish(ctx context.Context, r *run) {
	res := r.result

	if r.runID != "" {
		if err := f.archive.FinishRun(context.WithoutCancel(ctx), r.runID, len(res.Tweets), string(res.StopReason)); err != nil {
			r.log.WithError(err).Warn("Failed to finish archive run")
		}
	}

	if r.cpMgr != nil && res.StopReason.Complete() {
		if err := r.cpMgr.Delete(); err != nil {
			r.log.WithError(err).Warn("Failed to delete checkpoint")
		}
	}
}
