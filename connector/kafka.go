package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

type kafkaConnector struct {
	cfg     *KafkaConfig
	client  *kgo.Client
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool
	mu      sync.RWMutex
}

// NewKafka 创建 Kafka 连接器
func NewKafka(cfg *KafkaConfig, opts ...Option) (KafkaConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opt := applyOptions(opts...)

	return &kafkaConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "kafka"), clog.String("name", cfg.Name)),
		metrics: newConnMetrics(opt.meter, "kafka", cfg.Name),
	}, nil
}

func (c *kafkaConnector) clientOptions() []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.cfg.Seed...),
		kgo.ClientID(c.cfg.ClientID),
		kgo.DialTimeout(c.cfg.ConnectTimeout),
		kgo.ProduceRequestTimeout(c.cfg.RequestTimeout),
		kgo.WithLogger(&kgoLogger{logger: c.logger}),
		kgo.AllowAutoTopicCreation(),
	}
	if c.cfg.Topic != "" {
		opts = append(opts, kgo.DefaultProduceTopic(c.cfg.Topic))
	}
	return opts
}

// Connect 创建客户端并 Ping 任一 broker
func (c *kafkaConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	c.logger.Info("connecting to kafka", clog.Any("seeds", c.cfg.Seed))
	client, err := kgo.NewClient(c.clientOptions()...)
	if err != nil {
		c.metrics.connect(ctx, err)
		c.logger.Error("failed to create kafka client", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "kafka connector[%s]: %v", c.cfg.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	err = client.Ping(pingCtx)
	c.metrics.connect(ctx, err)
	if err != nil {
		client.Close()
		c.logger.Error("failed to ping kafka seeds", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "kafka connector[%s]: %v", c.cfg.Name, err)
	}

	c.client = client
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to kafka")
	return nil
}

func (c *kafkaConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)
	if c.client != nil {
		c.client.Close()
		c.client = nil
		c.logger.Info("kafka connection closed")
	}
	return nil
}

func (c *kafkaConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "kafka connector[%s]", c.cfg.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		return xerrors.Wrapf(ErrHealthCheck, "kafka connector[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *kafkaConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *kafkaConnector) Name() string {
	return c.cfg.Name
}

func (c *kafkaConnector) GetClient() *kgo.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *kafkaConnector) Config() *KafkaConfig {
	return c.cfg
}

// kgoLogger 把 franz-go 的日志转发到 clog
type kgoLogger struct {
	logger clog.Logger
}

func (l *kgoLogger) Level() kgo.LogLevel {
	return kgo.LogLevelWarn
}

func (l *kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	fields := make([]clog.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		if key, ok := keyvals[i].(string); ok {
			fields = append(fields, clog.Any(key, keyvals[i+1]))
		}
	}

	switch level {
	case kgo.LogLevelError:
		l.logger.Error(msg, fields...)
	case kgo.LogLevelWarn:
		l.logger.Warn(msg, fields...)
	case kgo.LogLevelInfo:
		l.logger.Info(msg, fields...)
	default:
		l.logger.Debug(msg, fields...)
	}
}
