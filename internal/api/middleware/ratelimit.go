package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/denisAlshanov/ytproxy/internal/config"
	"github.com/denisAlshanov/ytproxy/internal/utils"
)

// rateLimiter is a sliding window of request timestamps per client IP.
type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.prune()
	}
}

func (rl *rateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, times := range rl.requests {
		validTimes := rl.within(times, now)
		if len(validTimes) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = validTimes
		}
	}
}

func (rl *rateLimiter) within(times []time.Time, now time.Time) []time.Time {
	return lo.Filter(times, func(t time.Time, _ int) bool {
		return now.Sub(t) <= rl.window
	})
}

// isAllowed records a request for key and reports whether it fits the window.
// When it does not, retryAfter is the time until the oldest entry expires.
func (rl *rateLimiter) isAllowed(key string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	validTimes := rl.within(rl.requests[key], now)

	if len(validTimes) >= rl.limit {
		rl.requests[key] = validTimes
		return false, rl.window - now.Sub(validTimes[0])
	}

	rl.requests[key] = append(validTimes, now)
	return true, 0
}

// RateLimitMiddleware limits requests per client IP. A non-positive limit
// disables it.
func RateLimitMiddleware(cfg *config.APIConfig) gin.HandlerFunc {
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := newRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go limiter.cleanup()

	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, retryAfter := limiter.isAllowed(key)
		if !allowed {
			utils.LogWarn(c.Request.Context(), "Rate limit exceeded", utils.Fields{
				"ip":   key,
				"path": c.Request.URL.Path,
			})
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      utils.NewRateLimitError(),
				"request_id": c.GetString("request_id"),
				"timestamp":  time.Now().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}
