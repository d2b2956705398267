package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/testkit"
	"github.com/ceyewan/scoregate/xerrors"
)

type scoreboardSnap struct {
	Games    []string
	CachedAt time.Time
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemory(t *testing.T, opts ...Option) *memoryCache {
	t.Helper()
	c, err := New(&Config{Driver: DriverMemory, Capacity: 100, SweepInterval: time.Hour},
		append([]Option{WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c.(*memoryCache)
}

func TestNew(t *testing.T) {
	t.Run("nil 配置", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrConfigNil)
	})

	t.Run("未知驱动", func(t *testing.T) {
		_, err := New(&Config{Driver: "memcached"})
		assert.ErrorIs(t, err, ErrUnknownDriver)
		assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
	})

	t.Run("redis 驱动缺少连接器", func(t *testing.T) {
		_, err := New(&Config{Driver: DriverRedis})
		assert.ErrorIs(t, err, ErrConnectorNil)
	})
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestMemory(t)

	t.Run("未命中", func(t *testing.T) {
		var v string
		assert.ErrorIs(t, c.Get(ctx, "absent", &v), ErrMiss)
		ok, err := c.Has(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("结构体读写", func(t *testing.T) {
		snap := scoreboardSnap{Games: []string{"401772510"}, CachedAt: time.Now()}
		require.NoError(t, c.Set(ctx, "scoreboard:2025:regular:10", snap, time.Minute))

		got, ok, err := GetAs[scoreboardSnap](ctx, c, "scoreboard:2025:regular:10")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, snap.Games, got.Games)
	})

	t.Run("GetAs 未命中", func(t *testing.T) {
		_, ok, err := GetAs[scoreboardSnap](ctx, c, "nothing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("类型不匹配", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "n", "text", time.Minute))
		var n int
		assert.ErrorIs(t, c.Get(ctx, "n", &n), ErrInvalidDest)
	})

	t.Run("数字类型转换", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "count", 7, time.Minute))
		var n int64
		require.NoError(t, c.Get(ctx, "count", &n))
		assert.Equal(t, int64(7), n)
	})

	t.Run("dest 不是指针", func(t *testing.T) {
		var v string
		assert.ErrorIs(t, c.Get(ctx, "n", v), ErrInvalidDest)
	})

	t.Run("删除与清空", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
		require.NoError(t, c.Delete(ctx, "a"))
		ok, _ := c.Has(ctx, "a")
		assert.False(t, ok)

		require.NoError(t, c.Clear(ctx))
		ok, _ = c.Has(ctx, "b")
		assert.False(t, ok)
	})
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("100ms 后过期", func(t *testing.T) {
		c := newTestMemory(t)
		require.NoError(t, c.Set(ctx, "k", "v", 100*time.Millisecond))

		var v string
		require.NoError(t, c.Get(ctx, "k", &v))
		assert.Equal(t, "v", v)

		time.Sleep(150 * time.Millisecond)
		assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrMiss)
	})

	t.Run("覆盖写入延长 TTL", func(t *testing.T) {
		clock := &manualClock{now: time.Now()}
		c := newTestMemory(t, WithClock(clock.Now))

		require.NoError(t, c.Set(ctx, "k", "v1", time.Second))
		clock.Advance(800 * time.Millisecond)
		require.NoError(t, c.Set(ctx, "k", "v2", time.Second))
		clock.Advance(800 * time.Millisecond)

		var v string
		require.NoError(t, c.Get(ctx, "k", &v))
		assert.Equal(t, "v2", v)

		clock.Advance(300 * time.Millisecond)
		assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrMiss)
	})

	t.Run("Has 同样检查过期", func(t *testing.T) {
		clock := &manualClock{now: time.Now()}
		c := newTestMemory(t, WithClock(clock.Now))

		require.NoError(t, c.Set(ctx, "k", "v", time.Second))
		clock.Advance(2 * time.Second)
		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ttl 为 0 不过期", func(t *testing.T) {
		clock := &manualClock{now: time.Now()}
		c := newTestMemory(t, WithClock(clock.Now))

		require.NoError(t, c.Set(ctx, "k", "v", 0))
		clock.Advance(24 * time.Hour)
		ok, _ := c.Has(ctx, "k")
		assert.True(t, ok)
	})
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: time.Now()}
	c := newTestMemory(t, WithClock(clock.Now))

	require.NoError(t, c.Set(ctx, "games:live", "short", 15*time.Second))
	require.NoError(t, c.Set(ctx, "schedule:2025:regular:all", "long", 5*time.Minute))

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.sweep())

	// 清理不依赖读取：过期条目已不在底层缓存中
	_, present := c.cache.GetIfPresent("games:live")
	assert.False(t, present)
	_, present = c.cache.GetIfPresent("schedule:2025:regular:all")
	assert.True(t, present)
}

func TestMemorySweepLoop(t *testing.T) {
	ctx := context.Background()
	c, err := New(&Config{SweepInterval: 20 * time.Millisecond}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	m := c.(*memoryCache)

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, present := m.cache.GetIfPresent("k")
		return !present
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "重复关闭")
}
