package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/metrics"
)

const (
	// MetricAcquireTotal 令牌获取次数 (Counter)
	MetricAcquireTotal = "ratelimit_acquire_total"

	// MetricWaitSeconds Acquire 的等待耗时 (Histogram)
	MetricWaitSeconds = "ratelimit_wait_seconds"

	// MetricErrors 限流器后端错误数 (Counter)
	MetricErrors = "ratelimit_errors_total"

	LabelLimiter = "limiter"
	LabelDriver  = "driver"
	LabelResult  = "result"

	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultTimeout = "timeout"
)

type instruments struct {
	acquire metrics.Counter
	wait    metrics.Histogram
	errors  metrics.Counter
}

func newInstruments(meter metrics.Meter) (*instruments, error) {
	acquire, err := meter.Counter(MetricAcquireTotal, "Number of token acquisition attempts")
	if err != nil {
		return nil, err
	}
	wait, err := meter.Histogram(MetricWaitSeconds, "Time spent waiting for a token",
		metrics.WithUnit("s"), metrics.WithBuckets([]float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Counter(MetricErrors, "Number of limiter backend errors")
	if err != nil {
		return nil, err
	}
	return &instruments{acquire: acquire, wait: wait, errors: errs}, nil
}

func (i *instruments) observe(ctx context.Context, name, driver, result string) {
	i.acquire.Inc(ctx, metrics.L(LabelLimiter, name), metrics.L(LabelDriver, driver), metrics.L(LabelResult, result))
}

func (i *instruments) observeWait(ctx context.Context, name, driver string, d time.Duration) {
	i.wait.Record(ctx, d.Seconds(), metrics.L(LabelLimiter, name), metrics.L(LabelDriver, driver))
}
