package cache

import (
	"time"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/metrics"
)

// Option 缓存组件选项函数
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	redisConn connector.RedisConnector
	now       func() time.Time
}

// WithLogger 注入日志记录器，内部追加 namespace "cache"
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("cache")
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithRedisConnector 注入 Redis 连接器（redis 驱动必需）
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}

// WithClock 替换 memory 驱动的时间源
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
