package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-onboarding-service/pkg/logger"
)

// tokenBucket refills the bucket at KEYS[1] and tries to take one token.
// ARGV: rate (tokens/s), capacity, now (seconds, fractional), ttl (seconds).
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, ttl)
return allowed
`)

// TokenBucketConfig configures RateLimiter.
type TokenBucketConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstCapacity     int
}

// ttlSeconds keeps a bucket long enough to refill completely.
func (c TokenBucketConfig) ttlSeconds() int {
	ttl := int(float64(c.BurstCapacity)/c.RequestsPerSecond) + 1
	if ttl < 60 {
		ttl = 60
	}
	return ttl
}

// TokenBucketKey returns the Redis key of the bucket for a route and client.
func TokenBucketKey(method, path, clientIP string) string {
	return fmt.Sprintf("ratelimit:tb:%s:%s:%s", method, path, clientIP)
}

// RateLimiter returns a Gin middleware that applies a Redis token bucket per
// method, route and client IP. Redis failures let the request through.
func RateLimiter(client redis.UniversalClient, cfg TokenBucketConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || client == nil || cfg.RequestsPerSecond <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := TokenBucketKey(c.Request.Method, path, c.ClientIP())

		allowed, err := allow(c, client, key, cfg)
		if err != nil {
			logger.WithContext(ctx, log).Warn("rate limiter redis error, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)", cfg.RequestsPerSecond, cfg.BurstCapacity),
			})
			return
		}

		c.Next()
	}
}

func allow(c *gin.Context, client redis.UniversalClient, key string, cfg TokenBucketConfig) (bool, error) {
	ctx := c.Request.Context()

	// server time keeps buckets consistent across replicas
	now, err := client.Time(ctx).Result()
	if err != nil {
		return false, err
	}

	res, err := tokenBucket.Run(ctx, client, []string{key},
		cfg.RequestsPerSecond,
		cfg.BurstCapacity,
		float64(now.UnixMicro())/1e6,
		cfg.ttlSeconds(),
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
