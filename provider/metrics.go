package provider

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/metrics"
)

const (
	// MetricRequests 上游调用次数 (Counter)
	MetricRequests = "provider_requests_total"
	// MetricDuration 上游调用耗时 (Histogram)，不含排队等待令牌的时间
	MetricDuration = "provider_request_duration_seconds"
)

const (
	outcomeSuccess     = "success"
	outcomeNotFound    = "not_found"
	outcomeError       = "error"
	outcomeRejected    = "rejected"
	outcomeRateLimited = "rate_limited"
)

var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type instruments struct {
	requests metrics.Counter
	duration metrics.Histogram
}

func newInstruments(meter metrics.Meter) *instruments {
	requests, err1 := meter.Counter(MetricRequests, "上游调用次数")
	duration, err2 := meter.Histogram(MetricDuration, "上游调用耗时",
		metrics.WithUnit("s"), metrics.WithBuckets(durationBuckets))
	if err1 != nil || err2 != nil {
		return newInstruments(metrics.Discard())
	}
	return &instruments{requests: requests, duration: duration}
}

func (i *instruments) record(ctx context.Context, provider, operation, outcome string, elapsed time.Duration) {
	labels := []metrics.Label{
		metrics.L("provider", provider),
		metrics.L(metrics.LabelOperation, operation),
		metrics.L(metrics.LabelOutcome, outcome),
	}
	i.requests.Inc(ctx, labels...)
	if elapsed > 0 {
		i.duration.Record(ctx, elapsed.Seconds(), labels...)
	}
}
