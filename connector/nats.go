package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

type natsConnector struct {
	cfg     *NATSConfig
	conn    *nats.Conn
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool
	mu      sync.RWMutex
}

// NewNATS 创建 NATS 连接器，实际连接在 Connect 时建立
func NewNATS(cfg *NATSConfig, opts ...Option) (NATSConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opt := applyOptions(opts...)

	return &natsConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "nats"), clog.String("name", cfg.Name)),
		metrics: newConnMetrics(opt.meter, "nats", cfg.Name),
	}, nil
}

func (c *natsConnector) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.cfg.Name),
		nats.Timeout(c.cfg.Timeout),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.MaxReconnects(c.cfg.MaxReconnects),
		nats.PingInterval(c.cfg.PingInterval),
		nats.MaxPingsOutstanding(c.cfg.MaxPingsOut),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.healthy.Store(false)
			c.logger.Warn("nats disconnected", clog.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.healthy.Store(true)
			c.logger.Info("nats reconnected", clog.String("url", nc.ConnectedUrl()))
		}),
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(c.cfg.Username, c.cfg.Password))
	}
	if c.cfg.Token != "" {
		opts = append(opts, nats.Token(c.cfg.Token))
	}
	return opts
}

func (c *natsConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	c.logger.Info("connecting to nats", clog.String("url", c.cfg.URL))
	conn, err := nats.Connect(c.cfg.URL, c.natsOptions()...)
	c.metrics.connect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to nats", clog.Error(err), clog.String("url", c.cfg.URL))
		return xerrors.Wrapf(ErrConnection, "nats connector[%s]: %v", c.cfg.Name, err)
	}

	c.conn = conn
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to nats", clog.String("url", conn.ConnectedUrl()))
	return nil
}

func (c *natsConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)
	if c.conn == nil {
		return nil
	}
	// Drain 会等待未完成的发布刷出，失败时退化为直接关闭
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", clog.Error(err))
		c.conn.Close()
	}
	c.conn = nil
	c.logger.Info("nats connection closed")
	return nil
}

func (c *natsConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "nats connector[%s]", c.cfg.Name)
	}

	if status := conn.Status(); status != nats.CONNECTED {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		return xerrors.Wrapf(ErrHealthCheck, "nats connector[%s]: status %s", c.cfg.Name, status.String())
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		return xerrors.Wrapf(ErrHealthCheck, "nats connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *natsConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *natsConnector) Name() string {
	return c.cfg.Name
}

func (c *natsConnector) GetClient() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

