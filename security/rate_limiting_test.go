package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_LocalWindow(t *testing.T) {
	limiter := NewRateLimiter(nil, 3, time.Minute)
	ctx := context.Background()

	assert.True(t, limiter.allow(ctx, "ip:1.2.3.4"))
	assert.True(t, limiter.allow(ctx, "ip:1.2.3.4"))
	assert.True(t, limiter.allow(ctx, "ip:1.2.3.4"))
	assert.False(t, limiter.allow(ctx, "ip:1.2.3.4"))

	// Other clients have their own window
	assert.True(t, limiter.allow(ctx, "ip:5.6.7.8"))
}

func TestRateLimiter_LocalWindowResets(t *testing.T) {
	limiter := NewRateLimiter(nil, 1, 10*time.Millisecond)
	ctx := context.Background()

	assert.True(t, limiter.allow(ctx, "ip:1.2.3.4"))
	assert.False(t, limiter.allow(ctx, "ip:1.2.3.4"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, limiter.allow(ctx, "ip:1.2.3.4"))
}

func TestRateLimiter_Redis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	limiter := NewRateLimiter(db, 2, time.Minute)
	ctx := context.Background()

	mock.ExpectIncr("ratelimit:hold:user:u1").SetVal(1)
	mock.ExpectExpire("ratelimit:hold:user:u1", time.Minute).SetVal(true)
	mock.ExpectIncr("ratelimit:hold:user:u1").SetVal(2)
	mock.ExpectIncr("ratelimit:hold:user:u1").SetVal(3)

	assert.True(t, limiter.allow(ctx, "user:u1"))
	assert.True(t, limiter.allow(ctx, "user:u1"))
	assert.False(t, limiter.allow(ctx, "user:u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_RedisFailureFailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	limiter := NewRateLimiter(db, 1, time.Minute)

	mock.ExpectIncr("ratelimit:hold:ip:1.2.3.4").SetErr(assert.AnError)

	// A broken Redis must not block sales
	assert.True(t, limiter.allow(context.Background(), "ip:1.2.3.4"))
}

func TestIsSuspiciousUserAgent(t *testing.T) {
	assert.True(t, isSuspiciousUserAgent("Googlebot/2.1"))
	assert.True(t, isSuspiciousUserAgent("my-scraper/1.0"))
	assert.False(t, isSuspiciousUserAgent("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.False(t, isSuspiciousUserAgent(""))
}
