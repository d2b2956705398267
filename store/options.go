package store

import (
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/metrics"
)

// Option 归档器选项
type Option func(*options)

type options struct {
	logger          clog.Logger
	meter           metrics.Meter
	sqliteConnector connector.SQLiteConnector
	mysqlConnector  connector.MySQLConnector
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("store")
		}
	}
}

func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithSQLiteConnector 注入 SQLite 连接器
func WithSQLiteConnector(conn connector.SQLiteConnector) Option {
	return func(o *options) {
		o.sqliteConnector = conn
	}
}

// WithMySQLConnector 注入 MySQL 连接器
func WithMySQLConnector(conn connector.MySQLConnector) Option {
	return func(o *options) {
		o.mysqlConnector = conn
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}
