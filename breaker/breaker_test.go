package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/testkit"
	"github.com/ceyewan/scoregate/xerrors"
)

// fakeClock 可手动推进的时间源
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(t *testing.T, cfg *Config) (Breaker, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	brk, err := New(cfg,
		WithLogger(testkit.NewLogger()),
		WithMeter(testkit.NewMeter()),
		WithClock(clock.Now))
	require.NoError(t, err)
	return brk, clock
}

func TestNew(t *testing.T) {
	t.Run("nil 配置", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrConfigNil)
	})

	t.Run("阈值超过 100", func(t *testing.T) {
		_, err := New(&Config{FailureThreshold: 120})
		assert.ErrorIs(t, err, ErrInvalidThreshold)
		assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
	})

	t.Run("默认值", func(t *testing.T) {
		cfg := &Config{}
		brk, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, "default", brk.Name())
		assert.Equal(t, StateClosed, brk.State())
		// 调用方的配置不被修改
		assert.Zero(t, cfg.MinimumRequests)
	})
}

func TestOpensAfterFailureRate(t *testing.T) {
	t.Run("连续 5 次失败后打开", func(t *testing.T) {
		brk, _ := newTestBreaker(t, &Config{Name: "espn", FailureThreshold: 50, MinimumRequests: 5})

		for i := 0; i < 4; i++ {
			require.True(t, brk.Allow())
			brk.RecordFailure()
			assert.Equal(t, StateClosed, brk.State(), "未达到最少请求数前保持关闭")
		}
		require.True(t, brk.Allow())
		brk.RecordFailure()

		assert.Equal(t, StateOpen, brk.State())
		assert.False(t, brk.Allow())
	})

	t.Run("5 次请求中 3 次失败后打开", func(t *testing.T) {
		brk, _ := newTestBreaker(t, &Config{FailureThreshold: 50, MinimumRequests: 5})

		// S S F F F：成功同样计入请求数，3 / 5 = 60% >= 50%
		for _, ok := range []bool{true, true, false, false} {
			require.True(t, brk.Allow())
			if ok {
				brk.RecordSuccess()
			} else {
				brk.RecordFailure()
			}
		}
		assert.Equal(t, StateClosed, brk.State(), "4 次请求未达到最少请求数")

		require.True(t, brk.Allow())
		brk.RecordFailure()

		snap := brk.Metrics()
		assert.Equal(t, StateOpen, brk.State())
		assert.Equal(t, "open", snap.State)
		assert.False(t, brk.Allow())
	})

	t.Run("成功清零失败计数并计入请求数", func(t *testing.T) {
		brk, _ := newTestBreaker(t, &Config{FailureThreshold: 50, MinimumRequests: 5})

		brk.RecordFailure()
		brk.RecordFailure()
		brk.RecordSuccess()
		snap := brk.Metrics()
		assert.Equal(t, 0, snap.FailureCount)
		assert.Equal(t, 3, snap.RequestCount)

		// F F S F F：2 / 5 = 40% < 50%
		brk.RecordFailure()
		brk.RecordFailure()
		assert.Equal(t, StateClosed, brk.State())

		// F F S F F F：3 / 6 = 50% >= 50%
		brk.RecordFailure()
		assert.Equal(t, StateOpen, brk.State())
	})

	t.Run("失败率低于阈值保持关闭", func(t *testing.T) {
		brk, _ := newTestBreaker(t, &Config{FailureThreshold: 80, MinimumRequests: 5})

		brk.RecordFailure()
		brk.RecordFailure()
		brk.RecordSuccess()
		for i := 0; i < 3; i++ {
			brk.RecordFailure()
		}
		// 3 / 6 = 50% < 80%
		assert.Equal(t, StateClosed, brk.State())
	})

	t.Run("全部成功不会打开", func(t *testing.T) {
		brk, _ := newTestBreaker(t, &Config{FailureThreshold: 50, MinimumRequests: 5})
		for i := 0; i < 20; i++ {
			brk.RecordSuccess()
		}
		assert.Equal(t, StateClosed, brk.State())
		assert.Equal(t, 20, brk.Metrics().RequestCount)
	})
}

func TestHalfOpenProbe(t *testing.T) {
	cfg := &Config{FailureThreshold: 50, MinimumRequests: 5, ResetTimeout: time.Minute}

	open := func(t *testing.T) (Breaker, *fakeClock) {
		brk, clock := newTestBreaker(t, cfg)
		for i := 0; i < 5; i++ {
			brk.RecordFailure()
		}
		require.Equal(t, StateOpen, brk.State())
		return brk, clock
	}

	t.Run("超时前一直拒绝", func(t *testing.T) {
		brk, clock := open(t)
		clock.Advance(59 * time.Second)
		assert.False(t, brk.Allow())
		assert.Equal(t, StateOpen, brk.State())
		assert.False(t, brk.Metrics().NextAttemptAt.IsZero())
	})

	t.Run("超时后放行探测请求", func(t *testing.T) {
		brk, clock := open(t)
		clock.Advance(time.Minute)
		assert.True(t, brk.Allow())
		assert.Equal(t, StateHalfOpen, brk.State())
	})

	t.Run("探测失败重新打开", func(t *testing.T) {
		brk, clock := open(t)
		clock.Advance(time.Minute)
		require.True(t, brk.Allow())
		brk.RecordFailure()

		assert.Equal(t, StateOpen, brk.State())
		assert.False(t, brk.Allow())
		assert.Equal(t, clock.Now().Add(time.Minute), brk.Metrics().NextAttemptAt)
	})

	t.Run("探测成功关闭并清零", func(t *testing.T) {
		brk, clock := open(t)
		clock.Advance(time.Minute)
		require.True(t, brk.Allow())
		brk.RecordSuccess()

		assert.Equal(t, StateClosed, brk.State())
		snap := brk.Metrics()
		assert.Zero(t, snap.FailureCount)
		assert.Zero(t, snap.RequestCount)
		assert.Zero(t, snap.SuccessCount)
	})

	t.Run("需要多次成功才关闭", func(t *testing.T) {
		brk, clock := newTestBreaker(t, &Config{MinimumRequests: 1, ResetTimeout: time.Second, SuccessThreshold: 2})
		brk.RecordFailure()
		require.Equal(t, StateOpen, brk.State())

		clock.Advance(time.Second)
		require.True(t, brk.Allow())
		brk.RecordSuccess()
		assert.Equal(t, StateHalfOpen, brk.State())
		brk.RecordSuccess()
		assert.Equal(t, StateClosed, brk.State())
	})
}

func TestResetAndForceState(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{MinimumRequests: 1})

	t.Run("强制打开", func(t *testing.T) {
		brk.ForceState(StateOpen)
		assert.Equal(t, StateOpen, brk.State())
		assert.False(t, brk.Allow())
	})

	t.Run("重置后关闭", func(t *testing.T) {
		brk.Reset()
		assert.Equal(t, StateClosed, brk.State())
		assert.True(t, brk.Allow())
		assert.True(t, brk.Metrics().NextAttemptAt.IsZero())
	})

	t.Run("强制半开", func(t *testing.T) {
		brk.ForceState(StateHalfOpen)
		assert.Equal(t, "half_open", brk.Metrics().State)
		brk.RecordFailure()
		assert.Equal(t, StateOpen, brk.State())
	})
}

func TestConcurrentRecord(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{MinimumRequests: 1000, FailureThreshold: 100})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if brk.Allow() {
					brk.RecordFailure()
				}
			}
		}()
	}
	wg.Wait()

	snap := brk.Metrics()
	assert.Equal(t, 500, snap.RequestCount)
	assert.Equal(t, 500, snap.FailureCount)
	assert.Equal(t, StateClosed, brk.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
