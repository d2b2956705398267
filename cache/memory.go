package cache

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

// noExpiry ttl <= 0 时使用的过期时间（100 年）
const noExpiry = 24 * 365 * 100 * time.Hour

// entry memory 驱动中保存的条目
type entry struct {
	value     any
	cachedAt  time.Time
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

type memoryCache struct {
	cache  *otter.Cache[string, entry]
	logger clog.Logger
	inst   *instruments
	now    func() time.Time

	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newMemory(cfg *Config, opt *options) (*memoryCache, error) {
	c, err := otter.New(&otter.Options[string, entry]{
		MaximumSize:   cfg.Capacity,
		StatsRecorder: stats.NewCounter(),
		// 写入过期与 Redis TTL 语义一致，具体 TTL 在 Set 时覆盖
		ExpiryCalculator: otter.ExpiryWriting[string, entry](noExpiry),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: build otter cache")
	}

	m := &memoryCache{
		cache:    c,
		logger:   opt.logger.With(clog.String("driver", DriverMemory)),
		inst:     newInstruments(opt.meter, DriverMemory),
		now:      opt.now,
		interval: cfg.SweepInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweepLoop()

	m.logger.Info("memory cache created",
		clog.Int("capacity", cfg.Capacity),
		clog.Duration("sweep_interval", cfg.SweepInterval))
	return m, nil
}

func (m *memoryCache) Get(ctx context.Context, key string, dest any) error {
	e, ok := m.lookup(key)
	if !ok {
		m.inst.op(ctx, "get", resultMiss)
		return ErrMiss
	}
	if err := assignValue(e.value, dest); err != nil {
		m.inst.op(ctx, "get", resultError)
		return err
	}
	m.inst.op(ctx, "get", resultHit)
	return nil
}

// lookup 读取条目并在过期时顺带删除
func (m *memoryCache) lookup(key string) (entry, bool) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return entry{}, false
	}
	if e.expired(m.now()) {
		m.cache.Invalidate(key)
		return entry{}, false
	}
	return e, true
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	now := m.now()
	if ttl <= 0 {
		ttl = noExpiry
	}
	m.cache.Set(key, entry{value: value, cachedAt: now, expiresAt: now.Add(ttl)})
	m.cache.SetExpiresAfter(key, ttl)
	m.inst.op(ctx, "set", resultOK)
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.cache.Invalidate(key)
	m.inst.op(ctx, "delete", resultOK)
	return nil
}

func (m *memoryCache) Has(ctx context.Context, key string) (bool, error) {
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *memoryCache) Clear(ctx context.Context) error {
	m.cache.InvalidateAll()
	m.inst.op(ctx, "clear", resultOK)
	return nil
}

func (m *memoryCache) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
		m.cache.StopAllGoroutines()
	})
	return nil
}

func (m *memoryCache) sweepLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Debug("swept expired entries", clog.Int("count", n))
			}
		}
	}
}

// sweep 删除所有 expiresAt 已过的条目，与读取无关
func (m *memoryCache) sweep() int {
	now := m.now()
	var expired []string
	for key, e := range m.cache.All() {
		if e.expired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		m.cache.Invalidate(key)
	}

	ctx := context.Background()
	if len(expired) > 0 {
		m.inst.swept.Add(ctx, float64(len(expired)))
	}
	m.inst.entries.Set(ctx, float64(m.cache.EstimatedSize()))
	return len(expired)
}

// assignValue 把缓存中的原始对象赋给 dest 指向的变量
//
// 这是浅拷贝：切片、map、指针与缓存共享底层数据，调用方应视为只读。
func assignValue(val any, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return ErrInvalidDest
	}
	dv = dv.Elem()

	if val == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}

	sv := reflect.ValueOf(val)
	switch {
	case sv.Type().AssignableTo(dv.Type()):
		dv.Set(sv)
		return nil
	case sv.Kind() == reflect.Ptr && !sv.IsNil() && sv.Elem().Type().AssignableTo(dv.Type()):
		dv.Set(sv.Elem())
		return nil
	case sv.Type().ConvertibleTo(dv.Type()) && isNumber(sv.Kind()) && isNumber(dv.Kind()):
		dv.Set(sv.Convert(dv.Type()))
		return nil
	}
	return xerrors.Wrapf(ErrInvalidDest, "cannot assign %T to %T", val, dest)
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
