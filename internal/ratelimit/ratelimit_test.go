package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hookscope/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func exerciseSlidingWindow(t *testing.T, limiter ratelimit.RateLimiter, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
		clock.Advance(time.Second)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request inside the window must be refused")

	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "keys have independent budgets")

	// The first hit leaves the window, freeing exactly one slot.
	clock.Advance(57 * time.Second)
	allowed, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newClock()

	limiter, err := ratelimit.NewRedisRateLimiter("redis://"+mr.Addr(), 3, time.Minute, ratelimit.WithClock(clock.Now))
	require.NoError(t, err)
	defer limiter.Close()

	exerciseSlidingWindow(t, limiter, clock)
	assert.True(t, mr.Exists("hookscope:ratelimit:10.0.0.1"))
}

func TestRedisRateLimiter_SameInstantRequestsCountSeparately(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newClock()

	limiter, err := ratelimit.NewRedisRateLimiter("redis://"+mr.Addr(), 2, time.Minute, ratelimit.WithClock(clock.Now))
	require.NoError(t, err)
	defer limiter.Close()

	ctx := context.Background()
	for _, want := range []bool{true, true, false} {
		allowed, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, want, allowed)
	}
}

func TestRedisRateLimiter_ServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisRateLimiter("redis://"+mr.Addr(), 3, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	mr.Close()
	_, err = limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := ratelimit.NewRedisRateLimiter("not-a-valid-url", 100, time.Minute)
	assert.Error(t, err)
}

func TestMemoryRateLimiter_SlidingWindow(t *testing.T) {
	clock := newClock()
	limiter := ratelimit.NewMemoryRateLimiter(3, time.Minute, ratelimit.WithClock(clock.Now))
	defer limiter.Close()

	exerciseSlidingWindow(t, limiter, clock)
}

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &ratelimit.NoOpRateLimiter{}
	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "any")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Close())
}

func TestNew_SelectsImplementation(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		conf ratelimit.Config
		want any
	}{
		{"disabled", ratelimit.Config{Enabled: false, RedisURL: "redis://" + mr.Addr()}, &ratelimit.NoOpRateLimiter{}},
		{"memory", ratelimit.Config{Enabled: true, Requests: 1, Window: time.Minute}, nil},
		{"redis", ratelimit.Config{Enabled: true, RedisURL: "redis://" + mr.Addr(), Requests: 1, Window: time.Minute}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := ratelimit.New(tt.conf)
			require.NoError(t, err)
			defer limiter.Close()
			if tt.want != nil {
				assert.IsType(t, tt.want, limiter)
				return
			}
			allowed, err := limiter.Allow(context.Background(), "k")
			require.NoError(t, err)
			assert.True(t, allowed)
			allowed, err = limiter.Allow(context.Background(), "k")
			require.NoError(t, err)
			assert.False(t, allowed)
		})
	}
}
