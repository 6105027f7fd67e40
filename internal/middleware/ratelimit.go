// ratelimit.go provides Gin middleware that enforces per-client rate limits,
// returning 429 responses when the configured requests-per-minute threshold is
// exceeded. Two backends are available: an in-process token bucket suitable
// for single-instance deployments, and a Redis-backed GCRA limiter for
// deployments running more than one replica.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often to clean up expired entries
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 200, // Higher limit for authenticated admin usage
		BurstSize:         50,  // Allow burst for pages that load multiple resources
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter is the rate limiting decision interface shared by both backends.
type Limiter interface {
	// Allow reports whether a request from the given key should be allowed,
	// along with the number of requests still available in the window.
	Allow(ctx context.Context, key string) (allowed bool, remaining int)
	// Limit returns the configured requests-per-minute ceiling.
	Limit() int
	// Stop releases any background resources held by the limiter.
	Stop()
}

// ---
// In-memory token bucket
// ---

// rateLimitEntry tracks request counts for a single client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter implements a token bucket rate limiter held in process memory.
type RateLimiter struct {
	config  RateLimitConfig
	entries map[string]*rateLimitEntry
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// NewRateLimiter creates a new in-memory rate limiter with the given config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// cleanup periodically removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, entry := range rl.entries {
				// Remove entries that haven't been accessed in 10 minutes
				if now.Sub(entry.lastUpdate) > 10*time.Minute {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Limit returns the configured requests-per-minute ceiling.
func (rl *RateLimiter) Limit() int {
	return rl.config.RequestsPerMinute
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.entries[key]

	if !exists {
		// New client, give them full burst
		rl.entries[key] = &rateLimitEntry{
			tokens:     float64(rl.config.BurstSize) - 1,
			lastUpdate: now,
		}
		return true, rl.config.BurstSize - 1
	}

	// Calculate tokens to add based on time elapsed
	elapsed := now.Sub(entry.lastUpdate)
	tokensPerSecond := float64(rl.config.RequestsPerMinute) / 60.0
	tokensToAdd := elapsed.Seconds() * tokensPerSecond

	// Update tokens (capped at burst size)
	entry.tokens = min(float64(rl.config.BurstSize), entry.tokens+tokensToAdd)
	entry.lastUpdate = now

	// Check if we have tokens available
	if entry.tokens >= 1 {
		entry.tokens--
		return true, int(entry.tokens)
	}

	return false, 0
}

// ---
// Redis-backed limiter
// ---

// RedisRateLimiter enforces limits through Redis using the GCRA algorithm, so
// the limit holds across multiple server replicas sharing one Redis instance.
type RedisRateLimiter struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	rpm     int
}

// NewRedisRateLimiter creates a Redis-backed limiter from the given config.
func NewRedisRateLimiter(client *redis.Client, config RateLimitConfig) *RedisRateLimiter {
	limit := redis_rate.PerMinute(config.RequestsPerMinute)
	limit.Burst = config.BurstSize
	return &RedisRateLimiter{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
		limit:   limit,
		rpm:     config.RequestsPerMinute,
	}
}

// Limit returns the configured requests-per-minute ceiling.
func (rl *RedisRateLimiter) Limit() int {
	return rl.rpm
}

// Stop closes the underlying Redis connection.
func (rl *RedisRateLimiter) Stop() {
	_ = rl.client.Close()
}

// Allow checks the key against the shared Redis limit. If Redis is
// unreachable the request is allowed through; availability wins over
// strictness here.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int) {
	res, err := rl.limiter.Allow(ctx, "ratelimit:"+key, rl.limit)
	if err != nil {
		return true, rl.limit.Burst
	}
	return res.Allowed > 0, res.Remaining
}

// ---
// Middleware
// ---

// RateLimitMiddleware creates a Gin middleware that rate limits requests
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Determine the rate limit key
		key := getRateLimitKey(c)

		allowed, remaining := limiter.Allow(c.Request.Context(), key)
		if !allowed {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			return
		}

		// Add rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

// getRateLimitKey determines the key to use for rate limiting
// Priority: user_id > IP address
func getRateLimitKey(c *gin.Context) string {
	// Check for authenticated user
	if userID, exists := c.Get(CtxUserID); exists {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}

	// Fall back to IP address
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
