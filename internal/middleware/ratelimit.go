package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/slaptrapper/distribution-api/pkg/response"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a rate limiting middleware keyed by caller.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Next() // auth middleware catches unauthenticated callers
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)
		ctx := context.Background()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis down should not take the API with it.
			return c.Next()
		}

		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// MasteringLimit caps blocking mastering runs per caller.
func (rl *RateLimiter) MasteringLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("mastering", maxPerHour, time.Hour)
}

// PitchLimit caps campaign builds per caller.
func (rl *RateLimiter) PitchLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("pitch", maxPerHour, time.Hour)
}

// ReconcileLimit caps reconciliation batches per caller.
func (rl *RateLimiter) ReconcileLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("reconcile", maxPerHour, time.Hour)
}
