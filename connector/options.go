package connector

import (
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/metrics"
)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	tracing bool
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithTracing 为 Redis 和 GORM 客户端安装 OpenTelemetry 插桩
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()
	return o
}
