package breaker

import (
	"context"

	"github.com/ceyewan/scoregate/metrics"
)

const (
	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "breaker_state_changes_total"

	// MetricRejectsTotal 被熔断拒绝的请求数 (Counter)
	MetricRejectsTotal = "breaker_rejects_total"

	// MetricState 当前状态 (Gauge)，0 closed / 1 open / 2 half_open
	MetricState = "breaker_state"

	LabelBreaker   = "breaker"
	LabelFromState = "from_state"
	LabelToState   = "to_state"
)

type instruments struct {
	stateChanges metrics.Counter
	rejects      metrics.Counter
	state        metrics.Gauge
}

func newInstruments(meter metrics.Meter) *instruments {
	inst := &instruments{}
	var err1, err2, err3 error
	inst.stateChanges, err1 = meter.Counter(MetricStateChanges, "熔断器状态变更次数")
	inst.rejects, err2 = meter.Counter(MetricRejectsTotal, "熔断器拒绝的请求数")
	inst.state, err3 = meter.Gauge(MetricState, "熔断器当前状态")
	if err1 != nil || err2 != nil || err3 != nil {
		return newInstruments(metrics.Discard())
	}
	return inst
}

func (i *instruments) transition(name string, from, to State) {
	ctx := context.Background()
	i.stateChanges.Inc(ctx,
		metrics.L(LabelBreaker, name),
		metrics.L(LabelFromState, from.String()),
		metrics.L(LabelToState, to.String()))
	i.state.Set(ctx, float64(to), metrics.L(LabelBreaker, name))
}

func (i *instruments) reject(name string) {
	i.rejects.Inc(context.Background(), metrics.L(LabelBreaker, name))
}
