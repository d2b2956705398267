package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/scoregate/cache/serializer"
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

// scanBatch Clear 时每次 SCAN 的数量
const scanBatch = 200

type redisCache struct {
	client     *redis.Client
	serializer serializer.Serializer
	prefix     string
	guard      *gobreaker.CircuitBreaker[any]
	logger     clog.Logger
	inst       *instruments
}

func newRedis(cfg *Config, opt *options) (*redisCache, error) {
	client := opt.redisConn.GetClient()
	if client == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "redis client is nil")
	}
	s, err := serializer.New(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	c := &redisCache{
		client:     client,
		serializer: s,
		prefix:     cfg.Prefix,
		logger:     opt.logger.With(clog.String("driver", DriverRedis)),
		inst:       newInstruments(opt.meter, DriverRedis),
	}
	c.guard = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "cache-redis",
		MaxRequests: 1,
		Timeout:     cfg.Guard.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Guard.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("cache guard state changed",
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
		// redis.Nil 只是未命中，不算后端故障
		IsSuccessful: func(err error) bool {
			return err == nil || xerrors.Is(err, redis.Nil)
		},
	})

	c.logger.Info("redis cache created",
		clog.String("prefix", cfg.Prefix),
		clog.String("serializer", s.Name()))
	return c, nil
}

func (c *redisCache) key(key string) string {
	return c.prefix + key
}

// do 在熔断保护下执行一次 Redis 往返
func (c *redisCache) do(fn func() (any, error)) (any, error) {
	v, err := c.guard.Execute(fn)
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, xerrors.Wrap(ErrUnavailable, err.Error())
	}
	return v, err
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) error {
	v, err := c.do(func() (any, error) {
		return c.client.Get(ctx, c.key(key)).Bytes()
	})
	if xerrors.Is(err, redis.Nil) {
		c.inst.op(ctx, "get", resultMiss)
		return ErrMiss
	}
	if err != nil {
		c.inst.op(ctx, "get", resultError)
		return xerrors.Wrapf(err, "cache: get %s", key)
	}
	if err := c.serializer.Unmarshal(v.([]byte), dest); err != nil {
		c.inst.op(ctx, "get", resultError)
		return xerrors.Wrapf(err, "cache: decode %s", key)
	}
	c.inst.op(ctx, "get", resultHit)
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := c.serializer.Marshal(value)
	if err != nil {
		c.inst.op(ctx, "set", resultError)
		return xerrors.Wrapf(err, "cache: encode %s", key)
	}
	if ttl < 0 {
		ttl = 0
	}
	_, err = c.do(func() (any, error) {
		return nil, c.client.Set(ctx, c.key(key), data, ttl).Err()
	})
	c.inst.op(ctx, "set", errResult(err))
	return xerrors.Wrapf(err, "cache: set %s", key)
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	_, err := c.do(func() (any, error) {
		return nil, c.client.Del(ctx, c.key(key)).Err()
	})
	c.inst.op(ctx, "delete", errResult(err))
	return xerrors.Wrapf(err, "cache: delete %s", key)
}

func (c *redisCache) Has(ctx context.Context, key string) (bool, error) {
	v, err := c.do(func() (any, error) {
		return c.client.Exists(ctx, c.key(key)).Result()
	})
	if err != nil {
		return false, xerrors.Wrapf(err, "cache: exists %s", key)
	}
	return v.(int64) > 0, nil
}

// Clear 用 SCAN 遍历前缀下的 key 并分批删除
func (c *redisCache) Clear(ctx context.Context) error {
	_, err := c.do(func() (any, error) {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
					return nil, err
				}
			}
			cursor = next
			if cursor == 0 {
				return nil, nil
			}
		}
	})
	c.inst.op(ctx, "clear", errResult(err))
	return xerrors.Wrap(err, "cache: clear")
}

// Close 连接由 connector 管理，这里不关闭客户端
func (c *redisCache) Close() error {
	return nil
}
