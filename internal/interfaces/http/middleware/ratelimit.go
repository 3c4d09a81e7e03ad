package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts requests per key in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter is a process-local fixed window limiter, used when Redis is off
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count   int
	startAt time.Time
}

// NewMemoryLimiter allows limit requests per key per period
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.startAt) >= l.period {
		w = &window{startAt: now}
		l.windows[key] = w
	}
	w.count++
	return decide(l.limit, w.count, l.period-now.Sub(w.startAt)), nil
}

// Sweep drops windows that have expired
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		if now.Sub(w.startAt) >= l.period {
			delete(l.windows, key)
		}
	}
}

// Run sweeps expired windows until ctx is cancelled
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// RedisLimiter shares the counters between API replicas
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedisLimiter allows limit requests per key per period across all replicas
func NewRedisLimiter(client *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

// Allow implements Limiter. The first hit of a window sets its expiry.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, l.period)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, err
	}
	return decide(l.limit, int(incr.Val()), ttl.Val()), nil
}

func decide(limit, count int, resetIn time.Duration) Decision {
	remaining := max(limit-count, 0)
	return Decision{Allowed: count <= limit, Limit: limit, Remaining: remaining, ResetIn: resetIn}
}

// RateLimitKey keys signed-in customers by account and guests by client IP
func RateLimitKey(c *gin.Context) string {
	if userID := GetJWTUserID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit limits requests per RateLimitKey. A limiter error lets the
// request through so a Redis outage never takes checkout down.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return RateLimitByKey(limiter, "", RateLimitKey, log)
}

// RateLimitByKey limits requests per keyFunc within scope. Scopes give
// login and checkout their own budgets on the same limiter.
func RateLimitByKey(limiter Limiter, scope string, keyFunc func(*gin.Context) string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := keyFunc(c)
		if scope != "" {
			key = scope + ":" + key
		}
		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			if d.ResetIn > 0 {
				c.Header("Retry-After", strconv.Itoa(int(d.ResetIn.Round(time.Second).Seconds())))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.Fail("RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.", c.GetString("request_id")))
			return
		}
		c.Next()
	}
}
