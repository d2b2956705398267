package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
)

// policy 描述一个编排器的新鲜度与 TTL 规则
type policy[T any] struct {
	domain string
	counts func(T) game.Counts
	// stale 为 nil 表示缓存存在即新鲜
	stale func(c game.Counts, age time.Duration) bool
	ttl   func(c game.Counts) time.Duration
}

// fetcher 编排模板，每个编排器持有一个
type fetcher[T any] struct {
	policy policy[T]
	cache  cache.Cache
	bus    eventbus.Bus
	logger clog.Logger
	inst   *instruments
	now    func() time.Time
	group  singleflight.Group
}

func newFetcher[T any](p policy[T], c cache.Cache, bus eventbus.Bus, o *options) *fetcher[T] {
	return &fetcher[T]{
		policy: p,
		cache:  c,
		bus:    bus,
		logger: o.logger.With(clog.String("domain", p.domain)),
		inst:   newInstruments(o.meter),
		now:    o.now,
	}
}

// get 执行缓存优先的读取，load 只在未命中或过期时被调用。
// fields 会附加到事件数据中。
func (f *fetcher[T]) get(ctx context.Context, key string, fields map[string]any,
	load func(ctx context.Context) (T, error)) (*Result[T], error) {

	snap, found := f.lookup(ctx, key)
	if found {
		age := snap.Metadata.Age(f.now())
		if f.policy.stale == nil || !f.policy.stale(snap.Metadata.Counts, age) {
			f.inst.observe(ctx, f.policy.domain, resultHit)
			f.emit(ctx, ActionCacheHit, key, fields, snap.Metadata, nil)
			return &Result[T]{Payload: snap.Payload, FromCache: true, Metadata: snap.Metadata}, nil
		}
		f.inst.observe(ctx, f.policy.domain, resultStale)
	} else {
		f.inst.observe(ctx, f.policy.domain, resultMiss)
	}

	// 共享的拉取不随单个调用方取消
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return f.refresh(shared, key, fields, load)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		fresh := res.Val.(Snapshot[T])
		return &Result[T]{Payload: fresh.Payload, FromCache: false, Metadata: fresh.Metadata}, nil
	}
}

func (f *fetcher[T]) refresh(ctx context.Context, key string, fields map[string]any,
	load func(ctx context.Context) (T, error)) (Snapshot[T], error) {

	payload, err := load(ctx)
	if err != nil {
		f.inst.observe(ctx, f.policy.domain, resultError)
		data := cloneFields(fields)
		data["key"] = key
		data["error"] = err.Error()
		f.bus.Emit(ctx, EventName(f.policy.domain, ActionFetchFailed), data)
		return Snapshot[T]{}, err
	}

	counts := f.policy.counts(payload)
	snap := Snapshot[T]{
		Payload: payload,
		Metadata: Metadata{
			CachedAt: f.now(),
			TTL:      f.policy.ttl(counts),
			Counts:   counts,
		},
	}

	if err := f.cache.Set(ctx, key, snap, snap.Metadata.TTL); err != nil {
		f.logger.WarnContext(ctx, "cache write failed, serving fresh result uncached",
			clog.String("key", key), clog.Error(err))
	}
	f.emit(ctx, ActionFetched, key, fields, snap.Metadata, payload)
	return snap, nil
}

// lookup 读取缓存，读错误按未命中处理
func (f *fetcher[T]) lookup(ctx context.Context, key string) (Snapshot[T], bool) {
	snap, ok, err := cache.GetAs[Snapshot[T]](ctx, f.cache, key)
	if err != nil {
		f.logger.WarnContext(ctx, "cache read failed, treating as miss",
			clog.String("key", key), clog.Error(err))
		return Snapshot[T]{}, false
	}
	return snap, ok
}

func (f *fetcher[T]) emit(ctx context.Context, action, key string, fields map[string]any, md Metadata, payload any) {
	data := cloneFields(fields)
	data["key"] = key
	data["total"] = md.Total
	data["live"] = md.Live
	data["completed"] = md.Completed
	data["scheduled"] = md.Scheduled
	data["ttlSeconds"] = md.TTL.Seconds()
	if action == ActionCacheHit {
		data["ageSeconds"] = md.Age(f.now()).Seconds()
	}
	f.bus.Publish(ctx, eventbus.Event{
		Name:    EventName(f.policy.domain, action),
		Data:    data,
		Payload: payload,
	})
}

func cloneFields(fields map[string]any) map[string]any {
	data := make(map[string]any, len(fields)+8)
	for k, v := range fields {
		data[k] = v
	}
	return data
}
