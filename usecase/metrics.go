package usecase

import (
	"context"

	"github.com/ceyewan/scoregate/metrics"
)

// MetricRequests 编排器请求数 (Counter)，outcome 取值 hit|miss|stale|error
const MetricRequests = "usecase_requests_total"

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultStale = "stale"
	resultError = "error"
)

type instruments struct {
	requests metrics.Counter
}

func newInstruments(meter metrics.Meter) *instruments {
	requests, err := meter.Counter(MetricRequests, "编排器请求数")
	if err != nil {
		return newInstruments(metrics.Discard())
	}
	return &instruments{requests: requests}
}

func (i *instruments) observe(ctx context.Context, domain, result string) {
	i.requests.Inc(ctx, metrics.L("domain", domain), metrics.L(metrics.LabelOutcome, result))
}
