package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// Idle is how long an unseen client keeps its bucket
	Idle time.Duration
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		Idle:              10 * time.Minute,
	}
}

// RateLimit creates a per-IP rate limiting middleware. Buckets of clients
// idle longer than cfg.Idle are dropped.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	if cfg.Idle <= 0 {
		cfg.Idle = DefaultRateLimitConfig().Idle
	}

	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > cfg.Idle {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > cfg.Idle {
					delete(clients, key)
				}
			}
			lastSweep = now
		}
		cl, exists := clients[ip]
		if !exists {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		limiter := cl.limiter
		mu.Unlock()

		if !limiter.Allow() {
			reject(c, limiter)
			return
		}

		c.Next()
	}
}

func reject(c *gin.Context, limiter *rate.Limiter) {
	wait := time.Second
	if l := limiter.Limit(); l > 0 {
		wait = time.Duration(float64(time.Second) / float64(l))
	}
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
		"kind":  "rate_limited",
	})
}
