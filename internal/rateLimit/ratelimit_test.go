package rateLimit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/robertarktes/venue-seat-holds/internal/rateLimit"
)

func TestLocalLimiter(t *testing.T) {
	ctx := context.Background()
	l := rateLimit.NewLocalLimiter()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "ip:1", 3, time.Hour))
	}
	assert.False(t, l.Allow(ctx, "ip:1", 3, time.Hour))
	assert.True(t, l.Allow(ctx, "ip:2", 3, time.Hour))
}

func TestLocalLimiter_EvictsRefilledBuckets(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := rateLimit.NewLocalLimiterWithClock(func() time.Time { return clock })

	for i := 0; i < 50; i++ {
		assert.True(t, l.Allow(ctx, fmt.Sprintf("ip:%d", i), 2, time.Minute))
	}
	assert.True(t, l.Allow(ctx, "ip:busy", 2, time.Minute))
	assert.True(t, l.Allow(ctx, "ip:busy", 2, time.Minute))
	assert.Equal(t, 51, l.Len())

	// Idle keys refill within a minute; the busy key spends a token just
	// before the sweep and keeps its bucket.
	clock = clock.Add(59 * time.Second)
	assert.True(t, l.Allow(ctx, "ip:busy", 2, time.Minute))
	assert.Equal(t, 51, l.Len())

	clock = clock.Add(time.Second)
	l.Allow(ctx, "ip:busy", 2, time.Minute)
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Allow(ctx, "ip:7", 2, time.Minute))
	assert.Equal(t, 2, l.Len())
}
