package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

// ErrConfigNil 配置为空
var ErrConfigNil = xerrors.New("metrics: config is nil")

// ======== 工厂函数 ========

// New 创建 Meter
//
// 每个 Meter 拥有独立的 prometheus.Registry，多次创建不会重复注册。
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	cfg.setDefaults()

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: create resource")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: create prometheus exporter")
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if cfg.RuntimeMetrics {
		if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
			o.logger.Warn("start runtime metrics failed", clog.Error(err))
		}
	}

	m := &meterImpl{
		meter:    mp.Meter("github.com/ceyewan/scoregate"),
		provider: mp,
		registry: registry,
		logger:   o.logger,
	}

	if cfg.Port > 0 {
		m.serve(fmt.Sprintf(":%d", cfg.Port), cfg.Path)
	}
	return m, nil
}

// Handler 返回 Meter 对应的 Prometheus exposition handler
//
// noop Meter 返回 404。
func Handler(m Meter) http.Handler {
	if impl, ok := m.(*meterImpl); ok {
		return promhttp.HandlerFor(impl.registry, promhttp.HandlerOpts{})
	}
	return http.NotFoundHandler()
}

// ======== Meter 实现 ========

type meterImpl struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	logger   clog.Logger
	server   *http.Server
}

func (m *meterImpl) serve(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		m.logger.Info("prometheus metrics server started", clog.String("addr", addr), clog.String("path", path))
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("prometheus metrics server stopped", clog.Error(err))
		}
	}()
}

func (m *meterImpl) Counter(name string, desc string, opts ...MetricOption) (Counter, error) {
	mo := applyMetricOptions(opts)
	counterOpts := []metric.Float64CounterOption{metric.WithDescription(desc)}
	if mo.Unit != "" {
		counterOpts = append(counterOpts, metric.WithUnit(mo.Unit))
	}
	c, err := m.meter.Float64Counter(name, counterOpts...)
	if err != nil {
		return nil, err
	}
	return &counterImpl{c: c}, nil
}

func (m *meterImpl) Gauge(name string, desc string, opts ...MetricOption) (Gauge, error) {
	mo := applyMetricOptions(opts)
	gaugeOpts := []metric.Float64GaugeOption{metric.WithDescription(desc)}
	if mo.Unit != "" {
		gaugeOpts = append(gaugeOpts, metric.WithUnit(mo.Unit))
	}
	g, err := m.meter.Float64Gauge(name, gaugeOpts...)
	if err != nil {
		return nil, err
	}
	return &gaugeImpl{g: g, values: make(map[string]float64)}, nil
}

func (m *meterImpl) Histogram(name string, desc string, opts ...MetricOption) (Histogram, error) {
	mo := applyMetricOptions(opts)
	histOpts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if mo.Unit != "" {
		histOpts = append(histOpts, metric.WithUnit(mo.Unit))
	}
	if len(mo.Buckets) > 0 {
		histOpts = append(histOpts, metric.WithExplicitBucketBoundaries(mo.Buckets...))
	}
	h, err := m.meter.Float64Histogram(name, histOpts...)
	if err != nil {
		return nil, err
	}
	return &histogramImpl{h: h}, nil
}

func (m *meterImpl) Shutdown(ctx context.Context) error {
	var serverErr error
	if m.server != nil {
		serverErr = m.server.Shutdown(ctx)
	}
	return xerrors.Combine(serverErr, m.provider.Shutdown(ctx))
}

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	mo := &MetricOptions{}
	for _, o := range opts {
		o(mo)
	}
	return mo
}

// ======== 指标实现 ========

type counterImpl struct {
	c metric.Float64Counter
}

func (c *counterImpl) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (c *counterImpl) Add(ctx context.Context, val float64, labels ...Label) {
	c.c.Add(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

// gaugeImpl 在本地保存每组标签的当前值，以支持 Inc/Dec
type gaugeImpl struct {
	g      metric.Float64Gauge
	mu     sync.Mutex
	values map[string]float64
}

func (g *gaugeImpl) Set(ctx context.Context, val float64, labels ...Label) {
	g.mu.Lock()
	g.values[labelKey(labels)] = val
	g.mu.Unlock()
	g.g.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

func (g *gaugeImpl) Inc(ctx context.Context, labels ...Label) {
	g.add(ctx, 1, labels)
}

func (g *gaugeImpl) Dec(ctx context.Context, labels ...Label) {
	g.add(ctx, -1, labels)
}

func (g *gaugeImpl) add(ctx context.Context, delta float64, labels []Label) {
	key := labelKey(labels)
	g.mu.Lock()
	g.values[key] += delta
	val := g.values[key]
	g.mu.Unlock()
	g.g.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

type histogramImpl struct {
	h metric.Float64Histogram
}

func (h *histogramImpl) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		attrs[i] = attribute.String(l.Key, l.Value)
	}
	return attrs
}

func labelKey(labels []Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Key + "=" + l.Value
	}
	return strings.Join(parts, "|")
}
