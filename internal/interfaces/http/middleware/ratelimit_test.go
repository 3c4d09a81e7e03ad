package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	d, _ := l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	d, _ = l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	d, _ = l.Allow(ctx, "a")
	assert.True(t, d.Allowed, "new window")

	now = now.Add(2 * time.Minute)
	l.Sweep()
	assert.Empty(t, l.windows)
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewMemoryLimiter(2, time.Minute), nil))
	r.POST("/api/v1/checkout", func(c *gin.Context) { c.Status(http.StatusCreated) })

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, hit("10.0.0.1").Code)
	w := hit("10.0.0.1")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, hit("10.0.0.2").Code)
}

func TestRateLimitByKey_Scopes(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)
	byIP := func(c *gin.Context) string { return c.ClientIP() }
	r := gin.New()
	r.POST("/login", RateLimitByKey(limiter, "login", byIP, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/checkout", RateLimitByKey(limiter, "checkout", byIP, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, do("/login"))
	assert.Equal(t, http.StatusTooManyRequests, do("/login"))
	assert.Equal(t, http.StatusOK, do("/checkout"))
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	limiter := NewRedisLimiter(client, "rl:", 1, time.Minute)

	d, err := limiter.Allow(context.Background(), "ip:10.0.0.1")
	require.Error(t, err)
	assert.True(t, d.Allowed)

	r := gin.New()
	r.Use(RateLimit(limiter, nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
