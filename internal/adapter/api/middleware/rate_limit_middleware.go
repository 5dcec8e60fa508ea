package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"vendorchat/internal/usecase"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

// RateLimit throttles action per authenticated user, or per client IP before
// authentication has run.
func RateLimit(limiter usecase.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get("uid").(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s on %s (retry in %v)", key, action, wait)
				retry := int(math.Ceil(wait.Seconds()))
				if retry < 1 {
					retry = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return errors.TooManyRequests("Rate limit exceeded", nil)
			}
			return next(c)
		}
	}
}
