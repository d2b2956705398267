package breaker

import (
	"time"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	now    func() time.Time
}

// WithLogger 设置 Logger，内部会追加 namespace "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithClock 替换时间源，测试中用来推进 ResetTimeout
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.now == nil {
		o.now = time.Now
	}
}
