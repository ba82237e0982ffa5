// Package retry runs API calls with bounded attempts and per-error-type sleeps.
//
// Network, rate limit and server errors are retried. Auth, not found,
// invalid request and parsing errors fail immediately. A rate limit error
// that carries a server reset time sleeps until that reset, capped by
// MaxRateLimitWait.
//
//	cfg := retry.FromConfig(&appCfg.Retry, log)
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*twitter.SearchPage, error) {
//		return client.SearchRecent(ctx, params)
//	}, cfg)
//	if errors.Is(err, retry.ErrGaveUp) {
//		// every attempt failed
//	}
package retry
