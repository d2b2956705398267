// Package provider 是所有上游数据源的公共调用层。
//
// 每次上游调用都经过 Execute，顺序固定为：熔断器 → 限流器 → 实际请求。
// 熔断打开时直接失败且不消耗令牌；限流等待超时与请求失败都计入熔断器；
// 上游明确返回"不存在"（xerrors.ErrNotFound）视为调用成功。
//
//	client, _ := provider.New(&provider.Config{Name: "espn"}, limiter, brk, provider.WithLogger(logger))
//	games, err := provider.Execute(ctx, client, "scoreboard", func(ctx context.Context) ([]game.Game, error) {
//		return fetch(ctx)
//	})
package provider

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/breaker"
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/ratelimit"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/xerrors"
)

// Config Provider 调用配置
type Config struct {
	Name string `mapstructure:"name"`
	// AcquireTimeout 等待令牌的最长时间（默认：5s）
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	// RequestTimeout 单次上游请求超时（默认：10s）
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 5 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

// Client 持有一个 Provider 的限流器与熔断器，生命周期与 Provider 相同
type Client struct {
	cfg     Config
	limiter ratelimit.Limiter
	breaker breaker.Breaker
	logger  clog.Logger
	inst    *instruments
}

// New 创建 Client
func New(cfg *Config, limiter ratelimit.Limiter, brk breaker.Breaker, opts ...Option) (*Client, error) {
	if limiter == nil {
		return nil, ErrLimiterNil
	}
	if brk == nil {
		return nil, ErrBreakerNil
	}
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}

	return &Client{
		cfg:     c,
		limiter: limiter,
		breaker: brk,
		logger:  o.logger.With(clog.String("provider", c.Name)),
		inst:    newInstruments(o.meter),
	}, nil
}

func (c *Client) Name() string {
	return c.cfg.Name
}

func (c *Client) Breaker() breaker.Breaker {
	return c.breaker
}

func (c *Client) Limiter() ratelimit.Limiter {
	return c.limiter
}

// Execute 在熔断与限流保护下执行一次上游调用
func Execute[T any](ctx context.Context, c *Client, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ctx, span := trace.StartClientSpan(ctx, c.cfg.Name, operation)
	defer span.End()

	if !c.breaker.Allow() {
		c.inst.record(ctx, c.cfg.Name, operation, outcomeRejected, 0)
		c.logger.WarnContext(ctx, "upstream call rejected by open circuit",
			clog.String("operation", operation))
		err := c.wrap(operation, ErrUnavailable)
		trace.MarkSpanError(span, err)
		return zero, err
	}

	if err := c.limiter.Acquire(ctx, c.cfg.AcquireTimeout); err != nil {
		c.breaker.RecordFailure()
		c.inst.record(ctx, c.cfg.Name, operation, outcomeRateLimited, 0)
		c.logger.WarnContext(ctx, "rate limiter acquire failed",
			clog.String("operation", operation),
			clog.Error(err))
		err = c.wrap(operation, err)
		trace.MarkSpanError(span, err)
		return zero, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := fn(reqCtx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.breaker.RecordSuccess()
		c.inst.record(ctx, c.cfg.Name, operation, outcomeSuccess, elapsed)
		return result, nil

	case xerrors.Is(err, xerrors.ErrNotFound):
		c.breaker.RecordSuccess()
		c.inst.record(ctx, c.cfg.Name, operation, outcomeNotFound, elapsed)
		return zero, c.wrap(operation, err)
	}

	// 请求超时而调用方 ctx 仍有效时，归类为上游超时
	if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = xerrors.Join(ErrRequestTimeout, err)
	}
	c.breaker.RecordFailure()
	c.inst.record(ctx, c.cfg.Name, operation, outcomeError, elapsed)
	c.logger.ErrorContext(ctx, "upstream call failed",
		clog.String("operation", operation),
		clog.Duration("elapsed", elapsed),
		clog.Error(err))

	err = c.wrap(operation, err)
	trace.MarkSpanError(span, err)
	return zero, err
}

func (c *Client) wrap(operation string, err error) error {
	return &Error{Provider: c.cfg.Name, Operation: operation, Err: err}
}
