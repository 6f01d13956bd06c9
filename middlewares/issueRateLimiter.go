package middlewares

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateCounter is the subset of the Redis client the limiter needs.
// *redis.Client satisfies it.
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// IssueRateLimiter allows each authenticated user at most limit issue
// reports per window. Counters live in Redis under "<prefix>:<user id>".
// A nil counter or a non-positive limit disables the check.
func IssueRateLimiter(counter RateCounter, prefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		userKey := prefix + ":" + userID

		count, err := counter.Incr(ctx, userKey).Result()
		if err != nil {
			slog.ErrorContext(ctx, "rate limiter: incr", slog.String("key", userKey), slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
			c.Abort()
			return
		}

		// The window starts with the first report.
		if count == 1 {
			if err := counter.Expire(ctx, userKey, window).Err(); err != nil {
				slog.ErrorContext(ctx, "rate limiter: expire", slog.String("key", userKey), slog.String("error", err.Error()))
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := counter.TTL(ctx, userKey).Result()
			seconds := int64(math.Ceil(retryAfter.Seconds()))
			if seconds < 0 {
				seconds = 0
			}
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": seconds,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
