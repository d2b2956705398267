// Package metrics 为 scoregate 提供指标收集能力。
//
// 基于 OpenTelemetry 构建，通过 Prometheus exporter 暴露在独立的 registry 上，
// 由 server 挂载到 /metrics，也可以通过 Config.Port 单独监听。
//
//	meter, _ := metrics.New(&metrics.Config{Enabled: true, ServiceName: "scoregate"})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("provider_requests_total", "上游请求总数")
//	counter.Inc(ctx, metrics.L("provider", "espn"), metrics.L("outcome", "success"))
//
// 组件未注入 Meter 时使用 Discard()，所有记录都是空操作。
package metrics

import "context"

// Counter 单调递增的累计值，例如请求数、错误数
type Counter interface {
	Inc(ctx context.Context, labels ...Label)
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可增可减的瞬时值，例如熔断器状态、可用令牌数
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 记录值的分布，例如上游请求耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂，创建出的指标可在多个 goroutine 中并发使用
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新并关闭底层 MeterProvider
	Shutdown(ctx context.Context) error
}

// MetricOption 创建指标时的额外配置
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	Unit    string    // UCUM 单位，例如 "s"、"By"
	Buckets []float64 // 仅对 Histogram 生效
}

// WithUnit 设置指标单位
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图桶边界
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}
