package middleware

import (
	"strconv"
	"time"

	"complaint_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// SubmitRateLimit limits complaint submissions per client IP using a
// Redis sliding window. Applied to the write path only; reads stay
// unthrottled.
func SubmitRateLimit(limiter *ratelimit.SlidingWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, wait := limiter.Allow(c.Context(), GetClientIP(c))
		if allowed {
			c.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			return c.Next()
		}

		retryAfter := int(wait / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set("Retry-After", strconv.Itoa(retryAfter))

		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "rate limit exceeded",
			"code":        "RATE_LIMITED",
			"retry_after": retryAfter,
		})
	}
}
