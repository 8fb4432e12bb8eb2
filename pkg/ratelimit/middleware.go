// Package ratelimit throttles API callers per client IP.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"vehiclepush/pkg/metrics"
)

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
	// ExemptPaths are route patterns (gin FullPath) that are never limited.
	ExemptPaths []string
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
		ExemptPaths:     []string{"/health", "/metrics"},
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clients holds one token bucket per client IP.
type clients struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	entries map[string]*clientLimiter
}

func newClients(cfg RateLimitConfig) *clients {
	return &clients{cfg: cfg, entries: make(map[string]*clientLimiter)}
}

// allow takes one token from ip's bucket and reports the tokens left.
func (c *clients) allow(ip string, now time.Time) (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(c.cfg.RPS), c.cfg.Burst)}
		c.entries[ip] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// sweep forgets clients idle for longer than MaxAge.
func (c *clients) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for ip, entry := range c.entries {
		if now.Sub(entry.lastSeen) > c.cfg.MaxAge {
			delete(c.entries, ip)
			removed++
		}
	}
	return removed
}

func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	limiters := newClients(config)

	exempt := make(map[string]bool, len(config.ExemptPaths))
	for _, p := range config.ExemptPaths {
		exempt[p] = true
	}

	if config.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(config.CleanupInterval)
			defer ticker.Stop()
			for now := range ticker.C {
				limiters.sweep(now)
			}
		}()
	}

	limit := strconv.Itoa(int(config.RPS))

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if exempt[route] {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		allowed, remaining := limiters.allow(clientIP, time.Now())
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.IncRateLimit(route, "limited")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.IncRateLimit(route, "allowed")
		c.Next()
	}
}
