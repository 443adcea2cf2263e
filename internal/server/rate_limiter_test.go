package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/config"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(config.RateLimitConfig{Burst: 3, RefillInterval: 3 * time.Second}, clock.Now)

	for range 3 {
		req.True(rl.allow())
	}
	req.False(rl.allow())

	clock.Advance(time.Second)
	req.True(rl.allow())
	req.False(rl.allow())

	// Idle time never fills the bucket past its capacity.
	clock.Advance(time.Hour)
	for range 3 {
		req.True(rl.allow())
	}
	req.False(rl.allow())
}

func TestRateLimiter_InvalidConfigFallsBack(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(config.RateLimitConfig{}, clock.Now)

	require.True(t, rl.allow())
	require.False(t, rl.allow())

	clock.Advance(time.Second)
	require.True(t, rl.allow())
}
