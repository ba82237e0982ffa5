// Package ratelimit paces calls to the Twitter API.
//
// Two limiters are provided and usually combined with a Chain:
//
//   - SlidingWindow keeps at most N requests inside a moving window,
//     matching the per-15-minute request budgets the API enforces.
//   - Interval keeps a minimum gap between consecutive requests, the
//     fixed sleep between pages of a paginated fetch.
//
// Usage:
//
//	limiter := ratelimit.New(cfg.RateLimit, cfg.Search.PageDelay)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// issue the request
package ratelimit
