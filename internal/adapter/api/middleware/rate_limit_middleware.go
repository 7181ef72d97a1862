package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"propertychat/internal/infrastructure/metrics"
	"propertychat/internal/infrastructure/ratelimit"
	"propertychat/pkg/errors"
	"propertychat/pkg/logger"
	"propertychat/pkg/response"
)

// IPRateLimit throttles requests per client IP before authentication runs.
func IPRateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			allowed, waitTime := limiter.Allow(ip, ratelimit.ActionRequest)
			if !allowed {
				logger.Warn("RATE LIMIT: Blocked request from IP %s (retry in %v)", ip, waitTime)
				metrics.RateLimited.WithLabelValues(ratelimit.ActionRequest).Inc()

				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(waitTime.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}

			return next(c)
		}
	}
}
