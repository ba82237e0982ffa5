package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetutil/pkg/config"
)

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow(), "request %d", i+1)
	}
	assert.False(t, sw.Allow())
	assert.Equal(t, 0, sw.Remaining())

	time.Sleep(250 * time.Millisecond)
	assert.True(t, sw.Allow())

	sw.Reset()
	assert.Equal(t, 3, sw.Remaining())
}

func TestSlidingWindowWait(t *testing.T) {
	sw := NewSlidingWindow(1, 100*time.Millisecond)
	require.True(t, sw.Allow())

	start := time.Now()
	require.NoError(t, sw.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestSlidingWindowWaitCancelled(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	require.True(t, sw.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, sw.Wait(ctx), context.DeadlineExceeded)
}

func TestInterval(t *testing.T) {
	iv := NewInterval(100 * time.Millisecond)

	assert.True(t, iv.Allow(), "first request is not delayed")
	assert.False(t, iv.Allow())

	start := time.Now()
	require.NoError(t, iv.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	iv.Reset()
	assert.True(t, iv.Allow())
}

func TestChain(t *testing.T) {
	empty := NewChain()
	assert.True(t, empty.Allow())
	assert.NoError(t, empty.Wait(context.Background()))

	chain := NewChain(NewSlidingWindow(2, time.Hour), NewInterval(time.Millisecond))
	require.NoError(t, chain.Wait(context.Background()))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, chain.Wait(context.Background()))
	assert.False(t, chain.Allow())

	chain.Reset()
	assert.True(t, chain.Allow())
}

func TestNew(t *testing.T) {
	l := New(config.RateLimitConfig{RequestsPerWindow: 2, Window: time.Hour}, time.Hour)
	chain, ok := l.(*Chain)
	require.True(t, ok)
	assert.Len(t, chain.limiters, 2)

	l = New(config.RateLimitConfig{}, 0)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
}
