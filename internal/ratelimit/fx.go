package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vendorscope/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       config.Config
	Analytics *config.AnalyticsConfigHolder
	Log       *zap.Logger
}

// New builds the request limiter. Without REDIS_ADDR every replica limits
// on its own.
func New(p Params) *Limiter {
	addr := strings.TrimSpace(p.Cfg.RedisAddr)
	if addr == "" {
		p.Log.Info("rate limiting with in-process buckets")
		return NewLimiter(p.Analytics, nil, p.Log)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Cfg.RedisPassword),
		DB:       p.Cfg.RedisDB,
	})

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				p.Log.Warn("redis unreachable, rate limiting falls back to local buckets",
					zap.String("addr", addr),
					zap.Error(err),
				)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return NewLimiter(p.Analytics, NewTokenBucket(client), p.Log)
}
