package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/vendorscope/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const keyPrefix = "vendorscope:ratelimit:%s"

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func newDecision(allowed bool, burst int, remaining, perSecond float64) Decision {
	d := Decision{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(math.Max(0, math.Floor(remaining))),
	}
	if !allowed && perSecond > 0 {
		if needed := 1 - remaining; needed > 0 {
			d.RetryAfter = time.Duration(needed / perSecond * float64(time.Second))
		}
	}
	return d
}

// Limiter checks requests against the token bucket configured in
// analytics.yml. Redis backs the buckets when configured; a per-process
// bucket set is used otherwise and whenever redis cannot be reached.
type Limiter struct {
	cfg    *config.AnalyticsConfigHolder
	bucket *TokenBucket
	local  *localBuckets
	log    *zap.Logger
}

func NewLimiter(cfg *config.AnalyticsConfigHolder, bucket *TokenBucket, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		cfg:    cfg,
		bucket: bucket,
		local:  newLocalBuckets(),
		log:    log.Named("ratelimit"),
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.cfg != nil && l.cfg.Get().RateLimit.Enabled
}

func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	settings := l.cfg.Get().RateLimit
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	if l.bucket != nil {
		d, err := l.bucket.Allow(ctx, redisKey(key), settings.RequestsPerSecond, settings.Burst)
		if err == nil {
			return d, nil
		}
		l.log.Warn("redis rate limit check failed, using local bucket",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return l.local.allow(key, settings.RequestsPerSecond, settings.Burst), nil
}

func redisKey(key string) string {
	return fmt.Sprintf(keyPrefix, key)
}

// Buckets idle for this long are dropped, but never before they could
// have refilled completely.
const localIdleTTL = 10 * time.Minute

type localBucket struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	ttl      time.Duration
	lastSeen time.Time
}

type localBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	now       func() time.Time
	lastSweep time.Time
}

func newLocalBuckets() *localBuckets {
	return &localBuckets{
		buckets: make(map[string]*localBucket),
		now:     time.Now,
	}
}

func (b *localBuckets) allow(key string, perSecond float64, burst int) Decision {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= localIdleTTL/2 {
		b.evictIdle(now)
	}

	bucket, ok := b.buckets[key]
	if !ok || bucket.rate != perSecond || bucket.burst != burst {
		bucket = &localBucket{
			limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
			rate:    perSecond,
			burst:   burst,
			ttl:     max(localIdleTTL, bucketTTL(perSecond, burst)),
		}
		b.buckets[key] = bucket
	}
	bucket.lastSeen = now

	allowed := bucket.limiter.AllowN(now, 1)
	return newDecision(allowed, burst, bucket.limiter.TokensAt(now), perSecond)
}

// evictIdle drops buckets not used within their ttl. Callers hold mu.
func (b *localBuckets) evictIdle(now time.Time) {
	for key, bucket := range b.buckets {
		if now.Sub(bucket.lastSeen) >= bucket.ttl {
			delete(b.buckets, key)
		}
	}
	b.lastSweep = now
}
