package connector

import (
	"context"

	"github.com/ceyewan/scoregate/metrics"
)

const (
	metricConnectTotal = "connector_connect_total"
	metricHealthy      = "connector_healthy"
)

// connMetrics 所有连接器共用的连接指标
type connMetrics struct {
	connects metrics.Counter
	healthy  metrics.Gauge
	kind     string
	name     string
}

func newConnMetrics(meter metrics.Meter, kind, name string) *connMetrics {
	m := &connMetrics{kind: kind, name: name}
	m.connects, _ = meter.Counter(metricConnectTotal, "连接尝试次数")
	m.healthy, _ = meter.Gauge(metricHealthy, "连接健康状态，1 健康 0 不健康")
	if m.connects == nil || m.healthy == nil {
		d := metrics.Discard()
		m.connects, _ = d.Counter(metricConnectTotal, "")
		m.healthy, _ = d.Gauge(metricHealthy, "")
	}
	return m
}

func (m *connMetrics) connect(ctx context.Context, err error) {
	result := metrics.OutcomeSuccess
	if err != nil {
		result = metrics.OutcomeError
	}
	m.connects.Inc(ctx,
		metrics.L("connector", m.kind),
		metrics.L("name", m.name),
		metrics.L(metrics.LabelOutcome, result))
}

func (m *connMetrics) setHealthy(ctx context.Context, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	m.healthy.Set(ctx, v, metrics.L("connector", m.kind), metrics.L("name", m.name))
}
