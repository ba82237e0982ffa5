package ratelimit

import (
	"context"
	"sync"
	"time"

	"tweetutil/pkg/config"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// New builds the limiter used in front of every API call: a request
// window budget followed by a minimum spacing between calls.
func New(rl config.RateLimitConfig, interval time.Duration) Limiter {
	var limiters []Limiter
	if rl.RequestsPerWindow > 0 && rl.Window > 0 {
		limiters = append(limiters, NewSlidingWindow(rl.RequestsPerWindow, rl.Window))
	}
	if interval > 0 {
		limiters = append(limiters, NewInterval(interval))
	}
	return NewChain(limiters...)
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		timeToWait := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			timeToWait = sw.windowSize - time.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if err := sleep(ctx, timeToWait); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// Remaining returns how many requests the current window still allows
func (sw *SlidingWindow) Remaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cleanOldRequests(time.Now())
	return sw.maxRequests - len(sw.requests)
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Interval enforces a minimum spacing between consecutive requests.
// The first request is never delayed.
type Interval struct {
	every time.Duration
	last  time.Time
	mu    sync.Mutex
}

// NewInterval creates a limiter allowing one request per every
func NewInterval(every time.Duration) *Interval {
	return &Interval{every: every}
}

// Allow checks if enough time has passed since the last request
func (iv *Interval) Allow() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	now := time.Now()
	if iv.last.IsZero() || now.Sub(iv.last) >= iv.every {
		iv.last = now
		return true
	}
	return false
}

// Wait sleeps out the remainder of the interval
func (iv *Interval) Wait(ctx context.Context) error {
	for !iv.Allow() {
		iv.mu.Lock()
		remaining := iv.every - time.Since(iv.last)
		iv.mu.Unlock()

		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets the last request time
func (iv *Interval) Reset() {
	iv.mu.Lock()
	defer iv.mu.Unlock()

	iv.last = time.Time{}
}

// Chain applies several limiters in order
type Chain struct {
	limiters []Limiter
}

// NewChain creates a chain; an empty chain always allows
func NewChain(limiters ...Limiter) *Chain {
	return &Chain{limiters: limiters}
}

// Allow reports whether every limiter in the chain allows the request.
// Limiters ahead of a denying one have already counted the request.
func (c *Chain) Allow() bool {
	for _, l := range c.limiters {
		if !l.Allow() {
			return false
		}
	}
	return true
}

// Wait waits on each limiter in turn
func (c *Chain) Wait(ctx context.Context) error {
	for _, l := range c.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets every limiter in the chain
func (c *Chain) Reset() {
	for _, l := range c.limiters {
		l.Reset()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
