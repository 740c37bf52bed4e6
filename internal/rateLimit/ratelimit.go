package rateLimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	redisadapter "github.com/robertarktes/venue-seat-holds/internal/adapters/redis"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, period time.Duration) bool
}

// RateLimiter is a fixed-window limiter shared by every API instance through
// Redis. It fails closed when Redis is unreachable.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) bool {
	n, err := rl.redis.IncrWindow(ctx, key, period)
	if err != nil {
		return false
	}
	return n <= int64(limit)
}

const sweepInterval = time.Minute

// LocalLimiter keeps a token bucket per key in process memory. It is used
// when no Redis address is configured. Buckets that have refilled are
// dropped on a periodic sweep; a refilled bucket is indistinguishable from
// a new one, so eviction never changes a decision.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	now       func() time.Time
	lastSweep time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return newLocalLimiter(time.Now)
}

func newLocalLimiter(now func() time.Time) *LocalLimiter {
	return &LocalLimiter{
		buckets:   make(map[string]*rate.Limiter),
		now:       now,
		lastSweep: now(),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Every(period/time.Duration(limit)), limit)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.AllowN(now, 1)
}

// Len reports how many keys currently have a bucket.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep runs with l.mu held.
func (l *LocalLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if b.TokensAt(now) >= float64(b.Burst()) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
