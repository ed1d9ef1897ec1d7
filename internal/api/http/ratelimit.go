package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/pkg/util"
)

// CreateRateLimiter bounds unauthenticated ticket creation per client IP
// using a fixed one-hour window in Redis. A zero limit disables it; an
// unreachable Redis lets requests through rather than blocking submissions.
func CreateRateLimiter(client *redis.Client, perHour int, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perHour <= 0 || client == nil {
			return c.Next()
		}

		key := "ratelimit:create:" + c.IP()
		count, err := client.Incr(c.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			client.Expire(c.Context(), key, time.Hour)
		}
		if count > int64(perHour) {
			return &util.DomainError{
				Code:       "RATE_LIMITED",
				Message:    "too many tickets created, try again later",
				HTTPStatus: http.StatusTooManyRequests,
			}
		}
		return c.Next()
	}
}
