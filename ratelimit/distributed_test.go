package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/testkit"
)

func newRedisLimiter(t *testing.T, max int, window time.Duration) Limiter {
	t.Helper()
	conn := testkit.NewRedisConnector(t)

	l, err := New(&Config{
		Name:        "espn-" + testkit.NewID(),
		Driver:      DriverRedis,
		MaxRequests: max,
		Window:      window,
		Prefix:      "scoregate:test:ratelimit:",
	}, WithRedisConnector(conn), WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Reset(context.Background()) })
	return l
}

func TestRedisBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("容量内允许，超出拒绝", func(t *testing.T) {
		l := newRedisLimiter(t, 3, time.Minute)

		avail, err := l.Available(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3.0, avail)

		for i := 0; i < 3; i++ {
			ok, err := l.TryAcquire(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := l.TryAcquire(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		avail, err = l.Available(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, avail)
	})

	t.Run("Acquire 超时", func(t *testing.T) {
		l := newRedisLimiter(t, 1, time.Second)
		require.NoError(t, l.Acquire(ctx, 50*time.Millisecond))
		assert.ErrorIs(t, l.Acquire(ctx, 50*time.Millisecond), ErrAcquireTimeout)
	})

	t.Run("Reset 后恢复", func(t *testing.T) {
		l := newRedisLimiter(t, 1, time.Hour)
		ok, _ := l.TryAcquire(ctx)
		require.True(t, ok)

		require.NoError(t, l.Reset(ctx))
		ok, err := l.TryAcquire(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
