package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"famli/internal/config"
	"famli/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateWindow = time.Minute

// HitCounter increments the counter for key and returns the new total. The
// counter expires window after its first hit.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	rdb *redis.Client
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// LoginThrottle limits requests per client IP with a fixed one-minute window
// kept in Redis. It passes everything through when disabled or when no Redis
// client is available, and fails open on Redis errors.
func LoginThrottle(cfg config.RateLimitConfig, rdb *redis.Client, log logging.Logger) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return Throttle(int64(cfg.RequestsPerMinute), redisCounter{rdb: rdb}, log)
}

// Throttle rejects a client with 429 once it has made more than limit
// requests in the current window.
func Throttle(limit int64, counter HitCounter, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now()
		window := now.Truncate(rateWindow)
		key := rateKey(c.ClientIP(), window)

		count, err := counter.Hit(ctx, key, rateWindow)
		if err != nil {
			log.Warn(ctx, "rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			retry := int(math.Ceil(window.Add(rateWindow).Sub(now).Seconds()))
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(429, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}

func rateKey(ip string, window time.Time) string {
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("famli:ratelimit:auth:%s:%d", ip, window.Unix())
}
