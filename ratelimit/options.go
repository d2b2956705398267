package ratelimit

import (
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/metrics"
)

// Option 限流器选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	redisConn connector.RedisConnector
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("ratelimit")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithRedisConnector 设置 Redis 连接器（redis 驱动必需）
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}
