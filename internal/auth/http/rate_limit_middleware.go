package http

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/httputil"
)

type rateCheck func(ctx context.Context, ip string) *authUseCase.RateDecision

// RateLimitMiddleware enforces the general per-IP request ceiling.
//
// Counting happens in the shared cache, so the limit holds across server instances. A cache
// outage lets requests through (see RateLimiter).
//
// Returns:
//   - 429 Too Many Requests: ceiling reached (includes Retry-After header)
//   - Continues: request allowed within the window
func RateLimitMiddleware(limiter authUseCase.RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return rateLimit(limiter.Allow, "general", logger)
}

// LoginRateLimitMiddleware enforces the stricter per-IP ceiling on the login endpoint.
func LoginRateLimitMiddleware(limiter authUseCase.RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return rateLimit(limiter.AllowLogin, "login", logger)
}

func rateLimit(check rateCheck, bucket string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		decision := check(c.Request.Context(), ip)
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}

		logger.Debug("rate limit exceeded",
			slog.String("bucket", bucket),
			slog.String("ip", ip),
			slog.Int64("count", decision.Count),
			slog.Int64("limit", decision.Limit),
			slog.Int("retry_after", retryAfter))

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		httputil.HandleErrorGin(c, apperrors.ErrRateLimited, nil)
		c.Abort()
	}
}
