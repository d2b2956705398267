package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/scoregate/clog"
)

// tokenBucket 进程内令牌桶
//
// rate.Limiter 本身按时间惰性补充并以 burst 封顶；mu 只保护 Reset 时替换 limiter。
type tokenBucket struct {
	cfg    *Config
	logger clog.Logger
	inst   *instruments

	mu      sync.RWMutex
	limiter *rate.Limiter
	now     func() time.Time
}

func newTokenBucket(cfg *Config, logger clog.Logger, inst *instruments) *tokenBucket {
	b := &tokenBucket{
		cfg:    cfg,
		logger: logger,
		inst:   inst,
		now:    time.Now,
	}
	b.limiter = b.full()

	logger.Info("token bucket created",
		clog.Int("max_requests", cfg.MaxRequests),
		clog.Duration("window", cfg.Window),
		clog.Float64("rate_per_second", cfg.ratePerSecond()))
	return b
}

func (b *tokenBucket) full() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(b.cfg.ratePerSecond()), b.cfg.MaxRequests)
}

func (b *tokenBucket) try(ctx context.Context) (bool, time.Duration, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	now := b.now()
	if b.limiter.AllowN(now, 1) {
		b.inst.observe(ctx, b.cfg.Name, DriverLocal, ResultAllowed)
		return true, 0, nil
	}

	missing := 1 - b.limiter.TokensAt(now)
	next := time.Duration(missing / b.cfg.ratePerSecond() * float64(time.Second))
	b.inst.observe(ctx, b.cfg.Name, DriverLocal, ResultDenied)
	return false, next, nil
}

func (b *tokenBucket) TryAcquire(ctx context.Context) (bool, error) {
	ok, _, err := b.try(ctx)
	return ok, err
}

func (b *tokenBucket) Acquire(ctx context.Context, timeout time.Duration) error {
	waited, err := pollAcquire(ctx, timeout, b.try)
	b.inst.observeWait(ctx, b.cfg.Name, DriverLocal, waited)
	if err != nil {
		b.inst.observe(ctx, b.cfg.Name, DriverLocal, ResultTimeout)
		b.logger.Warn("acquire token failed", clog.Duration("timeout", timeout), clog.Error(err))
	}
	return err
}

func (b *tokenBucket) Available(_ context.Context) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tokens := b.limiter.TokensAt(b.now())
	return math.Max(0, math.Min(float64(b.cfg.MaxRequests), tokens)), nil
}

func (b *tokenBucket) Reset(_ context.Context) error {
	b.mu.Lock()
	b.limiter = b.full()
	b.mu.Unlock()

	b.logger.Info("token bucket reset")
	return nil
}

func (b *tokenBucket) Name() string {
	return b.cfg.Name
}

func (b *tokenBucket) Close() error {
	return nil
}
