package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func holderWith(rl config.RateLimitConfig) *config.AnalyticsConfigHolder {
	cfg := config.DefaultAnalyticsConfig()
	cfg.RateLimit = rl
	return config.NewStaticAnalyticsConfigHolder(cfg)
}

func TestLocalLimiterExhaustsBurst(t *testing.T) {
	l := NewLimiter(holderWith(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
	}), nil, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2, d.Limit)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	other, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l := NewLimiter(holderWith(config.RateLimitConfig{
		Enabled:           false,
		RequestsPerSecond: 0.001,
		Burst:             1,
	}), nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		d, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	var nilLimiter *Limiter
	assert.False(t, nilLimiter.Enabled())
}

func TestNewDecisionRetryAfter(t *testing.T) {
	d := newDecision(false, 10, 0.5, 2)
	assert.Equal(t, 250*time.Millisecond, d.RetryAfter)
	assert.Zero(t, d.Remaining)

	d = newDecision(true, 10, 3.7, 2)
	assert.Equal(t, 3, d.Remaining)
	assert.Zero(t, d.RetryAfter)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 4*time.Second, bucketTTL(10, 20))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var tb *TokenBucket
	_, err := tb.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
}

func TestLocalBucketsEvictIdleKeys(t *testing.T) {
	now := time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)
	b := newLocalBuckets()
	b.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		b.allow(fmt.Sprintf("client-%d", i), 10, 20)
	}
	assert.Len(t, b.buckets, 1000)

	now = now.Add(localIdleTTL + time.Second)
	b.allow("198.51.100.7", 10, 20)

	assert.Len(t, b.buckets, 1)
	assert.Contains(t, b.buckets, "198.51.100.7")
}

func TestLocalBucketsKeepActiveKeys(t *testing.T) {
	now := time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)
	b := newLocalBuckets()
	b.now = func() time.Time { return now }

	assert.True(t, b.allow("10.0.0.1", 0.001, 1).Allowed)
	b.allow("10.0.0.2", 0.001, 1)

	// The slow bucket needs far longer than localIdleTTL to refill, so
	// an exhausted client cannot reset it by waiting for eviction.
	now = now.Add(localIdleTTL + time.Second)
	assert.False(t, b.allow("10.0.0.1", 0.001, 1).Allowed)
	assert.Contains(t, b.buckets, "10.0.0.2")

	now = now.Add(bucketTTL(0.001, 1) + time.Second)
	b.allow("10.0.0.3", 0.001, 1)
	assert.NotContains(t, b.buckets, "10.0.0.1")
	assert.NotContains(t, b.buckets, "10.0.0.2")
}
