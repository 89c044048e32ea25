// Package ratelimit enforces a per-key request budget over a sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// slidingWindow keeps one sorted-set member per admitted request, scored by
// its arrival time in nanoseconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, ttl_ms)
	return 1
end
return 0
`)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// Option customizes a limiter.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRedisRateLimiter connects to redisURL and verifies the connection.
func NewRedisRateLimiter(redisURL string, limit int, window time.Duration, opts ...Option) (RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    buildOptions(opts).now,
	}, nil
}

// Allow implements sliding window rate limiting using Redis.
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	windowStart := now - r.window.Nanoseconds()

	result, err := slidingWindow.Run(ctx, r.client,
		[]string{"hookscope:ratelimit:" + key},
		now, windowStart, r.limit, r.window.Milliseconds(), uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.Inc()
	}
	return allowed, nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

const sweepEvery = 1024

// memoryRateLimiter is the single-process fallback when no Redis is configured.
type memoryRateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	hits  map[string][]time.Time
	calls int
}

// NewMemoryRateLimiter keeps the sliding window in process memory.
func NewMemoryRateLimiter(limit int, window time.Duration, opts ...Option) RateLimiter {
	return &memoryRateLimiter{
		limit:  limit,
		window: window,
		now:    buildOptions(opts).now,
		hits:   make(map[string][]time.Time),
	}
}

func (m *memoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	windowStart := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweepLocked(windowStart)
	}

	hits := m.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(windowStart) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= m.limit {
		m.hits[key] = hits
		metrics.RateLimitHits.Inc()
		return false, nil
	}
	m.hits[key] = append(hits, now)
	return true, nil
}

// sweepLocked drops keys with no request inside the window.
func (m *memoryRateLimiter) sweepLocked(windowStart time.Time) {
	for key, hits := range m.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(windowStart) {
			delete(m.hits, key)
		}
	}
}

func (m *memoryRateLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = make(map[string][]time.Time)
	return nil
}

// NoOpRateLimiter always allows requests (for testing or disabled rate limiting)
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}

// Config selects and sizes a limiter.
type Config struct {
	Enabled  bool
	RedisURL string
	Requests int
	Window   time.Duration
}

// New returns the limiter described by conf: disabled → no-op, a Redis URL →
// shared sliding window, otherwise an in-process window.
func New(conf Config, opts ...Option) (RateLimiter, error) {
	switch {
	case !conf.Enabled:
		return &NoOpRateLimiter{}, nil
	case conf.RedisURL != "":
		return NewRedisRateLimiter(conf.RedisURL, conf.Requests, conf.Window, opts...)
	default:
		return NewMemoryRateLimiter(conf.Requests, conf.Window, opts...), nil
	}
}
