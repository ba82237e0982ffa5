package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	errs "tweetutil/pkg/errors"
)

// BackoffStrategy decides how long to sleep before the next attempt
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt
	NextDelay(attempt int, err error) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor adds randomness (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int, _ error) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// ConstantBackoff sleeps the same amount after every failure
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int, _ error) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// ErrorTypeBackoff picks a strategy based on the typed API error
type ErrorTypeBackoff struct {
	NetworkErrorBackoff BackoffStrategy
	RateLimitBackoff    BackoffStrategy
	ServerErrorBackoff  BackoffStrategy
	DefaultBackoff      BackoffStrategy
	// MaxRateLimitWait caps a server-provided reset delay; zero means no cap
	MaxRateLimitWait time.Duration
}

// NewErrorTypeBackoff creates fixed per-type delays
func NewErrorTypeBackoff(network, server, rateLimit time.Duration) *ErrorTypeBackoff {
	return &ErrorTypeBackoff{
		NetworkErrorBackoff: &ConstantBackoff{Delay: network},
		RateLimitBackoff:    &ConstantBackoff{Delay: rateLimit},
		ServerErrorBackoff:  &ConstantBackoff{Delay: server},
		DefaultBackoff:      &ConstantBackoff{Delay: network},
	}
}

// GetBackoffForError returns the strategy for the error type
func (etb *ErrorTypeBackoff) GetBackoffForError(errorType errs.ErrorType) BackoffStrategy {
	switch errorType {
	case errs.ErrorTypeNetwork:
		return etb.NetworkErrorBackoff
	case errs.ErrorTypeRateLimit:
		return etb.RateLimitBackoff
	case errs.ErrorTypeServerError:
		return etb.ServerErrorBackoff
	default:
		return etb.DefaultBackoff
	}
}

// NextDelay honours RetryAfter on rate limit errors, otherwise delegates by type
func (etb *ErrorTypeBackoff) NextDelay(attempt int, err error) time.Duration {
	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		return etb.DefaultBackoff.NextDelay(attempt, err)
	}

	if apiErr.Type == errs.ErrorTypeRateLimit && apiErr.RetryAfter > 0 {
		wait := apiErr.RetryAfter
		if etb.MaxRateLimitWait > 0 && wait > etb.MaxRateLimitWait {
			wait = etb.MaxRateLimitWait
		}
		return wait
	}

	return etb.GetBackoffForError(apiErr.Type).NextDelay(attempt, err)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
