package app

import (
	"strings"
	"time"

	"github.com/ceyewan/scoregate/breaker"
	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/espn"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/provider"
	"github.com/ceyewan/scoregate/ratelimit"
	"github.com/ceyewan/scoregate/server"
	"github.com/ceyewan/scoregate/store"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/xerrors"
)

// 事件转发方式
const (
	SinkNone  = "none"
	SinkNATS  = "nats"
	SinkKafka = "kafka"
)

// Config 应用配置，对应 configs/scoregate.yaml
type Config struct {
	App      AppConfig             `mapstructure:"app"`
	Log      clog.Config           `mapstructure:"log"`
	HTTP     server.Config         `mapstructure:"http"`
	Metrics  metrics.Config        `mapstructure:"metrics"`
	Trace    trace.Config          `mapstructure:"trace"`
	Cache    cache.Config          `mapstructure:"cache"`
	Redis    connector.RedisConfig `mapstructure:"redis"`
	Provider ProviderConfig        `mapstructure:"provider"`
	Events   EventsConfig          `mapstructure:"events"`
	Archive  ArchiveConfig         `mapstructure:"archive"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// ProviderConfig 上游配置，每个 provider 独占一组限流器与熔断器
type ProviderConfig struct {
	provider.Config `mapstructure:",squash"`
	ESPN            espn.Config      `mapstructure:"espn"`
	RateLimit       ratelimit.Config `mapstructure:"rate_limit"`
	Breaker         breaker.Config   `mapstructure:"breaker"`
}

// EventsConfig 事件转发配置
type EventsConfig struct {
	Sink          string                `mapstructure:"sink"` // none|nats|kafka
	Pattern       string                `mapstructure:"pattern"`
	SubjectPrefix string                `mapstructure:"subject_prefix"`
	Topic         string                `mapstructure:"topic"`
	NATS          connector.NATSConfig  `mapstructure:"nats"`
	Kafka         connector.KafkaConfig `mapstructure:"kafka"`
}

// ArchiveConfig 比赛归档配置
type ArchiveConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	store.Config `mapstructure:",squash"`
	SQLite       connector.SQLiteConfig `mapstructure:"sqlite"`
	MySQL        connector.MySQLConfig  `mapstructure:"mysql"`
}

// Defaults 配置默认值，作为 config.WithDefaults 的输入，
// 同时让每个 key 都可以被 SCOREGATE_* 环境变量覆盖
func Defaults() map[string]any {
	return map[string]any{
		"app.name": "scoregate",
		"app.env":  "dev",

		"log.level":  "info",
		"log.format": "console",
		"log.output": "stdout",

		"http.addr":                ":8080",
		"http.mode":                "release",
		"http.read_header_timeout": "5s",
		"http.shutdown_timeout":    "10s",

		"metrics.enabled":         true,
		"metrics.runtime_metrics": true,
		"metrics.port":            0,
		"metrics.path":            "/metrics",

		"trace.enabled":  false,
		"trace.endpoint": "localhost:4317",
		"trace.sampler":  1.0,
		"trace.batcher":  "batch",
		"trace.insecure": true,

		"cache.driver":                     cache.DriverMemory,
		"cache.capacity":                   10000,
		"cache.sweep_interval":             "60s",
		"cache.prefix":                     "scoregate:cache:",
		"cache.serializer":                 "json",
		"cache.guard.consecutive_failures": 5,
		"cache.guard.open_timeout":         "10s",

		"redis.addr": "127.0.0.1:6379",
		"redis.db":   0,

		"provider.name":                       "espn",
		"provider.acquire_timeout":            "5s",
		"provider.request_timeout":            "10s",
		"provider.espn.base_url":              espn.DefaultBaseURL,
		"provider.espn.timeout":               "15s",
		"provider.rate_limit.driver":          ratelimit.DriverLocal,
		"provider.rate_limit.max_requests":    100,
		"provider.rate_limit.window":          "1m",
		"provider.breaker.failure_threshold":  50,
		"provider.breaker.minimum_requests":   5,
		"provider.breaker.reset_timeout":      "60s",
		"provider.breaker.success_threshold":  1,

		"events.sink":           SinkNone,
		"events.pattern":        "*",
		"events.subject_prefix": "scoregate.events",
		"events.topic":          "scoregate-events",
		"events.nats.url":       "nats://127.0.0.1:4222",
		"events.kafka.seed":     []string{"127.0.0.1:9092"},

		"archive.enabled":          false,
		"archive.driver":           store.DriverSQLite,
		"archive.silent":           true,
		"archive.async.queue_size": 64,
		"archive.async.timeout":    "5s",
		"archive.sqlite.path":      "scoregate.db",
	}
}

// setDefaults 补齐未经 Loader 构造的配置（例如测试中直接声明的 Config）
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "scoregate"
	}
	if c.HTTP.ServiceName == "" {
		c.HTTP.ServiceName = c.App.Name
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.App.Name
	}
	if c.Trace.ServiceName == "" {
		c.Trace.ServiceName = c.App.Name
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "espn"
	}
	if c.Provider.RateLimit.Name == "" {
		c.Provider.RateLimit.Name = c.Provider.Name
	}
	if c.Provider.RateLimit.MaxRequests == 0 {
		c.Provider.RateLimit.MaxRequests = 100
	}
	if c.Provider.RateLimit.Window == 0 {
		c.Provider.RateLimit.Window = time.Minute
	}
	if c.Provider.Breaker.Name == "" {
		c.Provider.Breaker.Name = c.Provider.Name
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = cache.DriverMemory
	}
	if c.Events.Sink == "" {
		c.Events.Sink = SinkNone
	}
	if c.Events.Pattern == "" {
		c.Events.Pattern = "*"
	}
}

// Validate 校验跨组件的组合约束，组件自身的字段由各自的构造函数校验
func (c *Config) Validate() error {
	switch strings.ToLower(c.Events.Sink) {
	case SinkNone, SinkNATS, SinkKafka:
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "app: unknown events.sink %q", c.Events.Sink)
	}
	switch c.Cache.Driver {
	case cache.DriverMemory, cache.DriverRedis:
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "app: unknown cache.driver %q", c.Cache.Driver)
	}
	if c.Archive.Enabled && c.Archive.Driver != "" &&
		c.Archive.Driver != store.DriverSQLite && c.Archive.Driver != store.DriverMySQL {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "app: unknown archive.driver %q", c.Archive.Driver)
	}
	return nil
}

func (c *Config) needsRedis() bool {
	return c.Cache.Driver == cache.DriverRedis || c.Provider.RateLimit.Driver == ratelimit.DriverRedis
}
