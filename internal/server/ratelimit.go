package server

import (
	"math"
	"net"
	"strconv"

	"github.com/labstack/echo/v4"

	"trendpress/internal/core"
	"trendpress/internal/ratelimit"
)

// RateLimitMiddleware applies the limiter per client. The client key comes
// from the first X-Forwarded-For hop when present, otherwise the remote
// address. Rejected requests get a 429 with a Retry-After header.
func RateLimitMiddleware(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			decision := limiter.Allow(clientKey(c))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))

				serviceErr := core.NewRateLimitError("rate limit exceeded, please retry later")
				body := serviceErr.ToJSON()
				body["error"].(map[string]interface{})["retry_after"] = retryAfter
				return c.JSON(serviceErr.HTTPStatusCode(), body)
			}

			return next(c)
		}
	}
}

// clientKey identifies the caller for rate limiting purposes.
func clientKey(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}
