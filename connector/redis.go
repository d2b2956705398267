package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

type redisConnector struct {
	cfg     *RedisConfig
	client  *redis.Client
	logger  clog.Logger
	metrics *connMetrics
	tracing bool
	healthy atomic.Bool
	mu      sync.RWMutex
}

// NewRedis 创建 Redis 连接器，客户端在构造时创建，Connect 负责 Ping 验证
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opt := applyOptions(opts...)

	c := &redisConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "redis"), clog.String("name", cfg.Name)),
		metrics: newConnMetrics(opt.meter, "redis", cfg.Name),
		tracing: opt.tracing,
	}
	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	if c.tracing {
		if err := redisotel.InstrumentTracing(c.client); err != nil {
			return nil, xerrors.Wrap(err, "redis connector: instrument tracing")
		}
		if err := redisotel.InstrumentMetrics(c.client); err != nil {
			return nil, xerrors.Wrap(err, "redis connector: instrument metrics")
		}
	}
	return c, nil
}

// Connect 通过 Ping 验证连接
func (c *redisConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return ErrAlreadyClosed
	}
	if c.healthy.Load() {
		return nil
	}

	c.logger.Info("connecting to redis", clog.String("addr", c.cfg.Addr), clog.Int("db", c.cfg.DB))
	err := c.client.Ping(ctx).Err()
	c.metrics.connect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to redis", clog.Error(err), clog.String("addr", c.cfg.Addr))
		return xerrors.Wrapf(ErrConnection, "redis connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to redis", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close redis connection", clog.Error(err))
		return err
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "redis connector[%s]", c.cfg.Name)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "redis connector[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *redisConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *redisConnector) Name() string {
	return c.cfg.Name
}

// GetClient 返回原生客户端，Close 之后返回 nil
func (c *redisConnector) GetClient() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
