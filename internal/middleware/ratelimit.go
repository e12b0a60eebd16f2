package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window duration. Counters live in Redis (INCR with an
// expiry set on the first hit of each window), so the limit holds across
// multiple server instances. Applied to the credential endpoints to slow
// brute-force and enumeration attempts. Returns 429 when exceeded.
//
// If Redis is unavailable the request is allowed through: losing rate
// limiting is preferable to taking down login entirely.
func RateLimit(rdb *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("ratelimit:%s:%s", name, c.RealIP())
			ctx := c.Request().Context()

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("limiter", name),
					slog.Any("error", err),
				)
				return next(c)
			}

			// First hit in this window starts the clock.
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					slog.Warn("failed to set rate limit expiry",
						slog.String("limiter", name),
						slog.Any("error", err),
					)
				}
			}

			if count > int64(maxRequests) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status":  "fail",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
