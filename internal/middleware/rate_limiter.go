package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 1 minute)
	Prefix      string        // Key namespace, e.g. "auth"
}

// Limiter decides whether key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimiter counts requests per key in Redis, so every instance shares the quota.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Allow implements a fixed window counter with INCR and EXPIRE.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.config.Prefix, key)

	count, err := rl.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}

	if count == 1 {
		if err := rl.redis.Expire(ctx, redisKey, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(rl.config.MaxRequests) {
		ttl, err := rl.redis.TTL(ctx, redisKey).Result()
		if err != nil || ttl <= 0 {
			ttl = rl.config.Window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}

// MemoryRateLimiter is the single-instance fallback used when no Redis is configured.
// It keeps one token bucket per key.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sweepThreshold is the bucket count above which idle buckets are dropped.
const sweepThreshold = 10000

// NewMemoryRateLimiter builds a per-key limiter. A non-positive MaxRequests
// admits nothing.
func NewMemoryRateLimiter(config RateLimiterConfig) *MemoryRateLimiter {
	var limit rate.Limit
	if config.MaxRequests > 0 {
		limit = rate.Every(config.Window / time.Duration(config.MaxRequests))
	}
	return &MemoryRateLimiter{
		limit:   limit,
		burst:   config.MaxRequests,
		idle:    config.Window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		if len(m.buckets) >= sweepThreshold {
			m.sweep(now)
		}
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, m.idle, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (m *MemoryRateLimiter) sweep(now time.Time) {
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.idle {
			delete(m.buckets, key)
		}
	}
}

// RateLimit rejects clients that exceed the limiter's quota with 429.
// Limiter errors let the request through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logger.Log.Warn("Rate limiter unavailable, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"code":        "Throttled",
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}
