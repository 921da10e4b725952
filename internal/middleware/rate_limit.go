package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/deppfellow/go-catalog/internal/errs"
	"github.com/deppfellow/go-catalog/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "catalog:ratelimit:"

// slidingWindow admits a request when fewer than limit requests were admitted
// for the key within the last window. Returns {allowed, remaining, reset_at_ms}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// RateLimitResult is the outcome of one limiter check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimitMiddleware enforces rate_limit.requests per client IP per
// rate_limit.window seconds, counted in Redis.
//
// It fails open: when Redis is missing or errors, requests pass and the
// failure is logged.
type RateLimitMiddleware struct {
	server *server.Server
	limit  int
	window time.Duration
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
		limit:  s.Config.RateLimit.Requests,
		window: time.Duration(s.Config.RateLimit.Window) * time.Second,
	}
}

// Enabled reports whether requests are actually limited.
func (r *RateLimitMiddleware) Enabled() bool {
	return r.server.Config.RateLimit.Enabled && r.server.Redis != nil && r.limit > 0
}

// Allow records one request for key and reports whether it is admitted.
func (r *RateLimitMiddleware) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	now := time.Now()

	result, err := slidingWindow.Run(ctx, r.server.Redis,
		[]string{rateLimitKeyPrefix + key},
		now.UnixMilli(),
		now.Add(-r.window).UnixMilli(),
		r.limit,
		r.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected response length %d", len(result))
	}

	resetAt := now.Add(r.window)
	if result[2] > 0 {
		resetAt = time.UnixMilli(result[2])
	}

	return &RateLimitResult{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   resetAt,
	}, nil
}

// Limit returns the echo middleware. It is a pass-through when limiting is disabled.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	if !r.Enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
			result, err := r.Allow(ctx, c.RealIP())
			cancel()
			if err != nil {
				GetLogger(c).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(r.limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				header.Set("Retry-After", strconv.Itoa(retryAfter))

				r.RecordRateLimitHit(c.Path())
				return errs.NewTooManyRequestsError("Too many requests", strconv.Itoa(retryAfter))
			}

			return next(c)
		}
	}
}

// RecordRateLimitHit reports a rejected request to New Relic as a custom event.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if r.server.LoggerService != nil && r.server.LoggerService.GetApplication() != nil {
		r.server.LoggerService.GetApplication().RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}
