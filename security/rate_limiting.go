package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed window counter kept in redis, shared by every
// instance of the service.
type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: redisClient, limit: int64(limit), window: window}
}

// Allow counts one hit against key and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = "ratelimit:" + key

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr %s: %w", key, err)
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
	}
	return count <= r.limit, nil
}

// KeyFunc picks the identity a request is counted against.
type KeyFunc func(e *core.RequestEvent) string

// ByIP counts requests per client address.
func ByIP(e *core.RequestEvent) string {
	return e.RealIP()
}

// Middleware rejects crawlers and callers over the limit for scope. Redis
// errors let the request through.
func (r *RateLimiter) Middleware(scope string, keyFn KeyFunc) func(e *core.RequestEvent) error {
	if keyFn == nil {
		keyFn = ByIP
	}

	return func(e *core.RequestEvent) error {
		if IsSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return e.JSON(http.StatusForbidden, map[string]string{
				"error": "Access denied",
			})
		}

		ok, err := r.Allow(e.Request.Context(), scope+":"+keyFn(e))
		if err != nil {
			slog.Warn("rate limiter unavailable", "scope", scope, "error", err)
			return e.Next()
		}
		if !ok {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return e.Next()
	}
}

func IsSuspiciousUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	for _, pattern := range []string{"bot", "crawler", "spider", "scraper"} {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
