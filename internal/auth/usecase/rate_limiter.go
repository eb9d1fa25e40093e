package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/sealdrop/internal/cache"
)

type rateLimiter struct {
	cache      cache.Cache
	window     time.Duration
	limit      int64
	loginLimit int64
	logger     *slog.Logger
}

func (r *rateLimiter) Allow(ctx context.Context, ip string) *RateDecision {
	return r.check(ctx, cache.RateKey(ip), r.limit)
}

func (r *rateLimiter) AllowLogin(ctx context.Context, ip string) *RateDecision {
	return r.check(ctx, cache.LoginRateKey(ip), r.loginLimit)
}

// check counts the request in a fixed window whose TTL starts at the first request. A cache
// failure lets the request through.
func (r *rateLimiter) check(ctx context.Context, key string, limit int64) *RateDecision {
	count, err := r.cache.IncrementWithTTL(context.WithoutCancel(ctx), key, r.window)
	if err != nil {
		r.logger.Warn("rate limiter unavailable, allowing request", slog.Any("error", err))
		return &RateDecision{Allowed: true, Limit: limit}
	}

	decision := &RateDecision{Allowed: count <= limit, Count: count, Limit: limit}
	if !decision.Allowed {
		decision.RetryAfter = r.window
	}
	return decision
}

// NewRateLimiter creates a RateLimiter with separate general and login ceilings per window.
func NewRateLimiter(
	c cache.Cache,
	window time.Duration,
	limit, loginLimit int64,
	logger *slog.Logger,
) RateLimiter {
	return &rateLimiter{
		cache:      c,
		window:     window,
		limit:      limit,
		loginLimit: loginLimit,
		logger:     logger,
	}
}
