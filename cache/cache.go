// Package cache 提供带 TTL 的键值缓存，scoregate 的所有编排器共享同一个实例。
//
// 支持两种驱动：
//   - memory（默认）：基于 otter 的进程内缓存，读取时检查过期，
//     另有后台 goroutine 按 SweepInterval 清理已过期条目
//   - redis：基于 go-redis，过期由 Redis TTL 负责，多副本共享缓存
//
// 基本使用：
//
//	c, _ := cache.New(&cache.Config{Driver: "memory"}, cache.WithLogger(logger))
//	defer c.Close()
//
//	_ = c.Set(ctx, "scoreboard:2025:regular:10", snapshot, 30*time.Second)
//	snap, ok, err := cache.GetAs[Snapshot](ctx, c, "scoreboard:2025:regular:10")
package cache

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/xerrors"
)

// Cache 缓存接口
type Cache interface {
	// Get 读取 key 并写入 dest（非 nil 指针），不存在或已过期返回 ErrMiss
	Get(ctx context.Context, key string, dest any) error
	// Set 无条件覆盖，重新计算过期时间；ttl <= 0 表示不过期
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Has 与 Get 使用相同的过期判断
	Has(ctx context.Context, key string) (bool, error)
	// Clear 删除本缓存管理的全部 key
	Clear(ctx context.Context) error
	Close() error
}

// GetAs 读取并返回类型化的值，未命中时 ok 为 false 且 err 为 nil
func GetAs[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, true, nil
	}
	var zero T
	if xerrors.Is(err, ErrMiss) {
		return zero, false, nil
	}
	return zero, false, err
}

// New 根据 cfg.Driver 创建缓存实例
func New(cfg *Config, opts ...Option) (Cache, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	switch c.Driver {
	case DriverMemory:
		return newMemory(&c, &opt)
	case DriverRedis:
		if opt.redisConn == nil {
			return nil, ErrConnectorNil
		}
		return newRedis(&c, &opt)
	default:
		return nil, xerrors.Wrapf(ErrUnknownDriver, "driver %q", c.Driver)
	}
}
