package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/breaker"
	"github.com/ceyewan/scoregate/ratelimit"
	"github.com/ceyewan/scoregate/testkit"
	"github.com/ceyewan/scoregate/xerrors"
)

func newTestClient(t *testing.T, maxRequests int, cfg *Config) *Client {
	t.Helper()
	logger, meter := testkit.NewLogger(), testkit.NewMeter()

	limiter, err := ratelimit.New(&ratelimit.Config{Name: "espn", MaxRequests: maxRequests, Window: time.Minute},
		ratelimit.WithLogger(logger), ratelimit.WithMeter(meter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	brk, err := breaker.New(&breaker.Config{Name: "espn", FailureThreshold: 50, MinimumRequests: 5},
		breaker.WithLogger(logger), breaker.WithMeter(meter))
	require.NoError(t, err)

	if cfg == nil {
		cfg = &Config{Name: "espn"}
	}
	c, err := New(cfg, limiter, brk, WithLogger(logger), WithMeter(meter))
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.ErrorIs(t, err, ErrLimiterNil)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("成功", func(t *testing.T) {
		c := newTestClient(t, 10, nil)
		got, err := Execute(ctx, c, "scoreboard", func(context.Context) ([]string, error) {
			return []string{"401772510"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"401772510"}, got)
		assert.Equal(t, breaker.StateClosed, c.Breaker().State())
	})

	t.Run("失败计入熔断并包装", func(t *testing.T) {
		c := newTestClient(t, 10, nil)
		upstream := xerrors.Wrap(ErrUpstream, "status 500")
		_, err := Execute(ctx, c, "summary", func(context.Context) (int, error) { return 0, upstream })

		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "espn", perr.Provider)
		assert.Equal(t, "summary", perr.Operation)
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Equal(t, xerrors.CodeUpstream, xerrors.GetCode(err))
		assert.Equal(t, 1, c.Breaker().Metrics().FailureCount)
	})

	t.Run("连续失败后熔断且不消耗令牌", func(t *testing.T) {
		c := newTestClient(t, 10, nil)
		for i := 0; i < 5; i++ {
			_, _ = Execute(ctx, c, "scoreboard", func(context.Context) (int, error) { return 0, ErrUpstream })
		}
		require.Equal(t, breaker.StateOpen, c.Breaker().State())

		before, err := c.Limiter().Available(ctx)
		require.NoError(t, err)

		called := false
		_, err = Execute(ctx, c, "scoreboard", func(context.Context) (int, error) {
			called = true
			return 1, nil
		})
		assert.False(t, called)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.True(t, xerrors.Is(err, xerrors.ErrUnavailable))

		after, err := c.Limiter().Available(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, after, before)
	})

	t.Run("NotFound 不会打开熔断", func(t *testing.T) {
		c := newTestClient(t, 20, nil)
		for i := 0; i < 10; i++ {
			_, err := Execute(ctx, c, "summary", func(context.Context) (*string, error) {
				return nil, xerrors.Wrap(xerrors.ErrNotFound, "event 1")
			})
			assert.True(t, xerrors.Is(err, xerrors.ErrNotFound))
		}
		assert.Equal(t, breaker.StateClosed, c.Breaker().State())
	})

	t.Run("限流超时计入熔断", func(t *testing.T) {
		c := newTestClient(t, 1, &Config{Name: "espn", AcquireTimeout: 50 * time.Millisecond})
		_, err := Execute(ctx, c, "scoreboard", func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)

		_, err = Execute(ctx, c, "scoreboard", func(context.Context) (int, error) { return 1, nil })
		assert.ErrorIs(t, err, ratelimit.ErrAcquireTimeout)
		assert.True(t, xerrors.Is(err, xerrors.ErrTimeout))
		snap := c.Breaker().Metrics()
		assert.Equal(t, 2, snap.RequestCount, "成功与限流超时都计入请求数")
		assert.Equal(t, 1, snap.FailureCount)
	})

	t.Run("请求超时", func(t *testing.T) {
		c := newTestClient(t, 10, &Config{Name: "espn", RequestTimeout: 20 * time.Millisecond})
		_, err := Execute(ctx, c, "scoreboard", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, ErrRequestTimeout)
		assert.True(t, xerrors.Is(err, xerrors.ErrTimeout))
		assert.Equal(t, 1, c.Breaker().Metrics().FailureCount)
	})

	t.Run("调用方取消", func(t *testing.T) {
		c := newTestClient(t, 10, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Execute(cctx, c, "scoreboard", func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, errors.Is(err, ErrRequestTimeout))
	})
}
