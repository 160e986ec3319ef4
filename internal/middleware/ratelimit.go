package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter increments the hit count for key within the current window.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisCounter is a fixed-window counter shared by every API instance.
type RedisCounter struct {
	rdb    *redis.Client
	window time.Duration
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisCounter(rdb *redis.Client, window time.Duration) *RedisCounter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisCounter{rdb: rdb, window: window}
}

func (rc *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, rc.rdb, []string{key}, rc.window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

// MemoryCounter is the single-process fallback used when Redis is not configured.
type MemoryCounter struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*fixedWindow
}

type fixedWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryCounter(window time.Duration) *MemoryCounter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryCounter{
		window:  window,
		now:     time.Now,
		windows: map[string]*fixedWindow{},
	}
}

func (mc *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	w := mc.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		// Drop stale windows so the map does not grow with every visitor.
		for k, old := range mc.windows {
			if !now.Before(old.resetAt) {
				delete(mc.windows, k)
			}
		}
		w = &fixedWindow{resetAt: now.Add(mc.window)}
		mc.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RateLimit caps requests per client IP for one route group. Counter errors
// let the request through.
func RateLimit(counter Counter, limit int, prefix string, logger *slog.Logger) gin.HandlerFunc {
	if limit <= 0 {
		limit = 20
	}
	return func(c *gin.Context) {
		key := "rl:" + prefix + ":" + c.ClientIP()
		count, err := counter.Incr(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter error", "error", err)
			c.Next()
			return
		}
		if count > int64(limit) {
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
