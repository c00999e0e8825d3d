// Package ratelimit throttles API callers with a fixed one-minute
// window counted in redis. Redis trouble never blocks a request: the
// limiter fails open, matching how the quota-style counters behave
// elsewhere in the codebase.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pullpaylabs/pullpay/internal/config"
)

const defaultPerMinute = 120

type Params struct {
	fx.In

	Redis  *redis.Client
	Log    *zap.Logger
	Config config.Config
}

// Limiter counts requests per caller per minute. A nil redis client
// (redis disabled) turns the limiter off entirely.
type Limiter struct {
	redis     *redis.Client
	log       *zap.Logger
	enabled   bool
	perMinute int
}

func NewLimiter(p Params) *Limiter {
	perMinute := p.Config.RateLimit.PerMinute
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	return &Limiter{
		redis:     p.Redis,
		log:       p.Log.Named("ratelimit"),
		enabled:   p.Config.RateLimit.Enabled && p.Redis != nil,
		perMinute: perMinute,
	}
}

// Allow reports whether the caller identified by key may proceed.
// The window key rolls over every minute; the first hit in a window
// sets a two-minute expiry so stale windows clean themselves up.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if !l.enabled {
		return true
	}

	now := time.Now().UTC()
	window := fmt.Sprintf("ratelimit:%s:%s", key, now.Format("200601021504"))

	val, err := l.redis.Incr(ctx, window).Result()
	if err != nil {
		l.log.Error("rate limit counter unavailable", zap.Error(err))
		return true
	}
	if val == 1 {
		l.redis.Expire(ctx, window, 2*time.Minute)
	}

	return val <= int64(l.perMinute)
}
