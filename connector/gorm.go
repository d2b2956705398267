package connector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

// poolConfig 连接池参数，SQLite 不设置
type poolConfig struct {
	maxIdle     int
	maxOpen     int
	maxLifetime time.Duration
}

// gormConnector SQLite 与 MySQL 共用的 GORM 连接器实现
type gormConnector struct {
	kind      string
	name      string
	target    string
	dialector func() gorm.Dialector
	pool      *poolConfig
	tracing   bool

	db      *gorm.DB
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool
	mu      sync.RWMutex
}

func newGormConnector(kind, name, target string, dialector func() gorm.Dialector, pool *poolConfig, opt *options) *gormConnector {
	return &gormConnector{
		kind:      kind,
		name:      name,
		target:    target,
		dialector: dialector,
		pool:      pool,
		tracing:   opt.tracing,
		logger:    opt.logger.With(clog.String("connector", kind), clog.String("name", name)),
		metrics:   newConnMetrics(opt.meter, kind, name),
	}
}

func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("connecting to database", clog.String("target", c.target))
	db, err := c.open(ctx)
	c.metrics.connect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to database", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to database", clog.String("target", c.target))
	return nil
}

func (c *gormConnector) open(ctx context.Context) (*gorm.DB, error) {
	db, err := gorm.Open(c.dialector(), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if c.tracing {
		if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(c.name))); err != nil {
			return nil, xerrors.Wrap(err, "install otelgorm plugin")
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.pool != nil {
		sqlDB.SetMaxIdleConns(c.pool.maxIdle)
		sqlDB.SetMaxOpenConns(c.pool.maxOpen)
		sqlDB.SetConnMaxLifetime(c.pool.maxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close database", clog.Error(err))
		return err
	}
	c.logger.Info("database connection closed")
	return nil
}

func (c *gormConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "%s connector[%s]", c.kind, c.name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("database health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *gormConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *gormConnector) Name() string {
	return c.name
}

func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
