package cache

import (
	"context"

	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/xerrors"
)

const (
	// MetricOperations 缓存操作次数 (Counter)
	MetricOperations = "cache_operations_total"
	// MetricSwept 后台清理删除的条目数 (Counter)
	MetricSwept = "cache_swept_total"
	// MetricEntries 当前条目数估算值 (Gauge)
	MetricEntries = "cache_entries"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultOK    = "ok"
	resultError = "error"
)

type instruments struct {
	driver  string
	ops     metrics.Counter
	swept   metrics.Counter
	entries metrics.Gauge
}

func newInstruments(meter metrics.Meter, driver string) *instruments {
	inst := &instruments{driver: driver}
	var err1, err2, err3 error
	inst.ops, err1 = meter.Counter(MetricOperations, "缓存操作次数")
	inst.swept, err2 = meter.Counter(MetricSwept, "后台清理删除的过期条目数")
	inst.entries, err3 = meter.Gauge(MetricEntries, "缓存条目数估算值")
	if err1 != nil || err2 != nil || err3 != nil {
		return newInstruments(metrics.Discard(), driver)
	}
	return inst
}

func (i *instruments) op(ctx context.Context, op, result string) {
	i.ops.Inc(ctx,
		metrics.L("driver", i.driver),
		metrics.L(metrics.LabelOperation, op),
		metrics.L("result", result))
}

// errResult 把错误归类为 miss / error / ok
func errResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case xerrors.Is(err, ErrMiss):
		return resultMiss
	default:
		return resultError
	}
}
