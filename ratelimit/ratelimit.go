// Package ratelimit 提供上游调用的令牌桶准入控制。
//
// 每个 Provider Client 持有一个 Limiter，用来约束发往上游的请求速率：
// 桶容量为 MaxRequests，每 Window 补满一次，补充按时间惰性计算。
//
//   - local：基于 golang.org/x/time/rate，进程内有效
//   - redis：Redis + Lua 令牌桶，多个网关副本共享同一份上游配额
//
// 基本使用：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Name: "espn", MaxRequests: 100, Window: time.Minute},
//	    ratelimit.WithLogger(logger), ratelimit.WithMeter(meter))
//
//	if err := limiter.Acquire(ctx, 5*time.Second); err != nil {
//	    // errors.Is(err, ratelimit.ErrAcquireTimeout)
//	}
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/xerrors"
)

// ======== 接口定义 (Interface Definitions) ========

// Limiter 令牌桶限流器
//
// 不变量：任何操作之后 0 <= 可用令牌 <= MaxRequests。
type Limiter interface {
	// TryAcquire 惰性补充令牌后尝试取走 1 个，不阻塞
	TryAcquire(ctx context.Context) (bool, error)

	// Acquire 轮询 TryAcquire 直到成功；累计等待达到 timeout 返回 ErrAcquireTimeout，
	// ctx 先结束时返回 ctx 的错误
	Acquire(ctx context.Context, timeout time.Duration) error

	// Available 返回当前可用令牌数（补充后的值，不消耗）
	Available(ctx context.Context) (float64, error)

	// Reset 将令牌恢复到 MaxRequests
	Reset(ctx context.Context) error

	// Name 限流器名称，通常是 provider 名
	Name() string

	Close() error
}

// ======== 配置 (Configuration) ========

const (
	DriverLocal = "local"
	DriverRedis = "redis"
)

// Config 限流器配置
//
//	rate_limit:
//	  driver: local
//	  max_requests: 100
//	  window: 1m
type Config struct {
	Name        string        `mapstructure:"name"`
	Driver      string        `mapstructure:"driver"`       // local|redis
	MaxRequests int           `mapstructure:"max_requests"` // 桶容量
	Window      time.Duration `mapstructure:"window"`       // 补满整个桶所需时间
	Prefix      string        `mapstructure:"prefix"`       // redis key 前缀
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Driver == "" {
		c.Driver = DriverLocal
	}
	if c.Prefix == "" {
		c.Prefix = "scoregate:ratelimit:"
	}
}

func (c *Config) validate() error {
	if c.MaxRequests <= 0 {
		return xerrors.Wrapf(ErrInvalidLimit, "max_requests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return xerrors.Wrapf(ErrInvalidLimit, "window must be positive, got %s", c.Window)
	}
	return nil
}

// ratePerSecond 每秒补充的令牌数
func (c *Config) ratePerSecond() float64 {
	return float64(c.MaxRequests) / c.Window.Seconds()
}

// ======== 工厂函数 (Factory Functions) ========

// New 根据 Driver 创建限流器，redis 驱动需要 WithRedisConnector
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(clog.String("limiter", cfg.Name))

	inst, err := newInstruments(o.meter)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverLocal:
		return newTokenBucket(cfg, o.logger, inst), nil
	case DriverRedis:
		if o.redisConn == nil {
			return nil, ErrConnectorNil
		}
		return newRedisBucket(cfg, o.redisConn, o.logger, inst), nil
	default:
		return nil, xerrors.Wrapf(ErrUnknownDriver, "%q", cfg.Driver)
	}
}
