package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles hold attempts so a single client cannot grind
// through the inventory by spamming holds. Counts live in Redis when a
// client is available, so the limit holds across engine instances;
// otherwise a per-process fixed window is used.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration

	mu    sync.Mutex
	local map[string]*localWindow
}

type localWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		local:  make(map[string]*localWindow),
	}
}

// LimitHolds wraps a hold handler with the per-client attempt limit and
// a user-agent screen for the obvious scrapers.
func (r *RateLimiter) LimitHolds(next func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return e.JSON(http.StatusForbidden, map[string]string{
				"error": "Access denied",
			})
		}

		if !r.allow(e.Request.Context(), clientKey(e)) {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many hold attempts. Please try again later.",
			})
		}

		return next(e)
	}
}

func clientKey(e *core.RequestEvent) string {
	if auth := e.Auth; auth != nil {
		return "user:" + auth.Id
	}
	return "ip:" + e.RealIP()
}

func (r *RateLimiter) allow(ctx context.Context, key string) bool {
	if r.redis != nil {
		return r.allowRedis(ctx, key)
	}
	return r.allowLocal(key)
}

func (r *RateLimiter) allowRedis(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:hold:%s", key)

	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		// Redis trouble must not block sales
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, redisKey, r.window)
	}
	return count <= int64(r.limit)
}

func (r *RateLimiter) allowLocal(key string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.local[key]
	if !ok || now.After(w.resetAt) {
		r.local[key] = &localWindow{count: 1, resetAt: now.Add(r.window)}
		r.pruneLocked(now)
		return true
	}

	w.count++
	return w.count <= r.limit
}

// pruneLocked drops stale windows; called with the mutex held.
func (r *RateLimiter) pruneLocked(now time.Time) {
	if len(r.local) < 10000 {
		return
	}
	for key, w := range r.local {
		if now.After(w.resetAt) {
			delete(r.local, key)
		}
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	lowered := strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}
