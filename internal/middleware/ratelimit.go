// ratelimit.go enforces per-client token-bucket limits, keyed by user when
// authenticated and by client IP otherwise.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Buckets idle longer than this are dropped by the sweeper.
const bucketIdleTimeout = 10 * time.Minute

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate
	RequestsPerMinute int
	// BurstSize is the bucket capacity
	BurstSize int
	// CleanupInterval is how often idle buckets are swept
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig covers general authenticated API traffic. The burst
// absorbs dashboard loads that fetch several resource lists at once.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 200,
		BurstSize:         50,
		CleanupInterval:   5 * time.Minute,
	}
}

// AuthRateLimitConfig keeps login and token endpoints on a short leash.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// UploadRateLimitConfig limits document and attachment uploads.
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// bucket is one client's token bucket.
type bucket struct {
	tokens   float64
	refilled time.Time
}

// refill adds tokens for the elapsed time, capped at capacity.
func (b *bucket) refill(now time.Time, perMinute, capacity int) {
	elapsed := now.Sub(b.refilled).Seconds()
	b.tokens += elapsed * float64(perMinute) / 60.0
	if cap := float64(capacity); b.tokens > cap {
		b.tokens = cap
	}
	b.refilled = now
}

// RateLimiter is an in-memory token-bucket limiter with a background sweeper
// for idle buckets.
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.RWMutex
	buckets map[string]*bucket
	stop    chan struct{}
}

// NewRateLimiter creates a limiter and starts its sweeper.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-bucketIdleTimeout)
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if b.refilled.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop terminates the sweeper goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

// Allow reports whether a request under key may proceed, consuming a token
// when it does.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{tokens: float64(rl.config.BurstSize) - 1, refilled: now}
		return true
	}

	b.refill(now, rl.config.RequestsPerMinute, rl.config.BurstSize)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RemainingTokens returns the whole tokens currently available under key.
func (rl *RateLimiter) RemainingTokens(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, ok := rl.buckets[key]
	if !ok {
		return rl.config.BurstSize
	}
	snapshot := *b
	snapshot.refill(time.Now(), rl.config.RequestsPerMinute, rl.config.BurstSize)
	return int(snapshot.tokens)
}

// RateLimitMiddleware rejects requests over the limit with 429 and annotates
// every response with rate-limit headers.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))

		c.Next()
	}
}

// rateLimitKey prefers the authenticated user, falling back to client IP so
// pre-auth endpoints are still limited.
func rateLimitKey(c *gin.Context) string {
	if userID, exists := c.Get(UserIDContextKey); exists {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
