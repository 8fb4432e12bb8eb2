package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClients_AllowAndSweep(t *testing.T) {
	cfg := RateLimitConfig{RPS: 1, Burst: 2, MaxAge: time.Minute}
	c := newClients(cfg)
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	ok, remaining := c.allow("10.0.0.1", now)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, _ = c.allow("10.0.0.1", now)
	assert.True(t, ok)

	ok, remaining = c.allow("10.0.0.1", now)
	assert.False(t, ok, "burst exhausted")
	assert.Equal(t, 0, remaining)

	ok, _ = c.allow("10.0.0.2", now)
	assert.True(t, ok, "clients have separate buckets")

	ok, _ = c.allow("10.0.0.1", now.Add(time.Second))
	assert.True(t, ok, "bucket refills at RPS")

	assert.Equal(t, 0, c.sweep(now.Add(30*time.Second)))
	assert.Equal(t, 2, c.sweep(now.Add(2*time.Minute)))
	assert.Empty(t, c.entries)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := DefaultConfig()
	cfg.RPS = 0.001
	cfg.Burst = 1
	cfg.CleanupInterval = 0

	router := gin.New()
	router.Use(RateLimitMiddleware(cfg))
	router.POST("/api/v1/push", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "192.0.2.10:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := do(http.MethodPost, "/api/v1/push")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := do(http.MethodPost, "/api/v1/push")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMIT_EXCEEDED")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health").Code, "health is exempt")
	}
}
