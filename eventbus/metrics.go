package eventbus

import (
	"context"

	"github.com/ceyewan/scoregate/metrics"
)

const (
	// MetricEmitted 发布的事件数 (Counter)
	MetricEmitted = "eventbus_events_total"
	// MetricHandlerErrors 订阅者失败次数 (Counter)，reason 为 error、panic 或 dropped
	MetricHandlerErrors = "eventbus_handler_errors_total"
	// MetricForwarded 转发到外部消息系统的事件数 (Counter)
	MetricForwarded = "eventbus_forwarded_total"
)

type instruments struct {
	emitted       metrics.Counter
	handlerErrors metrics.Counter
	forwarded     metrics.Counter
}

func newInstruments(meter metrics.Meter) *instruments {
	inst := &instruments{}
	var err1, err2, err3 error
	inst.emitted, err1 = meter.Counter(MetricEmitted, "发布的事件数")
	inst.handlerErrors, err2 = meter.Counter(MetricHandlerErrors, "订阅者处理失败次数")
	inst.forwarded, err3 = meter.Counter(MetricForwarded, "转发到外部消息系统的事件数")
	if err1 != nil || err2 != nil || err3 != nil {
		return newInstruments(metrics.Discard())
	}
	return inst
}

func (i *instruments) forward(ctx context.Context, system, event string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	i.forwarded.Inc(ctx,
		metrics.L("system", system),
		metrics.L("event", event),
		metrics.L(metrics.LabelOutcome, outcome))
}
