package connector

import (
	"fmt"
	"time"

	"github.com/ceyewan/scoregate/xerrors"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Name     string `mapstructure:"name"`     // 连接器名称 (默认: "default")
	Addr     string `mapstructure:"addr"`     // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `mapstructure:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db"`       // [可选] 数据库编号 (默认: 0)

	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 2)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "redis config is nil")
	}
	c.setDefaults()
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrapf(ErrConfig, "redis db must be >= 0, got %d", c.DB)
	}
	return nil
}

// NATSConfig NATS 连接配置
type NATSConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"` // [必填] 如 "nats://127.0.0.1:4222"
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`

	Timeout       time.Duration `mapstructure:"timeout"`        // 连接超时 (默认: 5s)
	MaxReconnects int           `mapstructure:"max_reconnects"` // 最大重连次数 (默认: 60)
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"` // 重连等待时间 (默认: 2s)
	PingInterval  time.Duration `mapstructure:"ping_interval"`  // (默认: 2m)
	MaxPingsOut   int           `mapstructure:"max_pings_out"`  // (默认: 2)
}

func (c *NATSConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 60
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 2 * time.Minute
	}
	if c.MaxPingsOut == 0 {
		c.MaxPingsOut = 2
	}
}

func (c *NATSConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "nats config is nil")
	}
	c.setDefaults()
	if c.URL == "" {
		return xerrors.Wrap(ErrConfig, "nats url is required")
	}
	return nil
}

// KafkaConfig Kafka 连接配置
type KafkaConfig struct {
	Name     string   `mapstructure:"name"`
	Seed     []string `mapstructure:"seed"` // [必填] 初始 broker 列表
	ClientID string   `mapstructure:"client_id"`
	Topic    string   `mapstructure:"topic"` // 默认生产 topic，可为空

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // (默认: 10s)
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // (默认: 10s)
}

func (c *KafkaConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ClientID == "" {
		c.ClientID = "scoregate"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

func (c *KafkaConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "kafka config is nil")
	}
	c.setDefaults()
	if len(c.Seed) == 0 {
		return xerrors.Wrap(ErrConfig, "kafka seed brokers are required")
	}
	return nil
}

// SQLiteConfig SQLite 连接配置
type SQLiteConfig struct {
	Name string `mapstructure:"name"`
	// Path 数据库文件路径，":memory:" 或 "file::memory:?cache=shared" 表示内存库
	Path string `mapstructure:"path"`
}

func (c *SQLiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Path == "" {
		c.Path = "scoregate.db"
	}
}

func (c *SQLiteConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	c.setDefaults()
	return nil
}

// MySQLConfig MySQL 连接配置
type MySQLConfig struct {
	Name string `mapstructure:"name"`

	// DSN 完整 DSN，设置后忽略 Host/Port 等字段
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // (默认: 3306)
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"` // (默认: "utf8mb4")

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // (默认: 10)
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // (默认: 50)
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // (默认: 1h)
}

func (c *MySQLConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 50
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
}

func (c *MySQLConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "mysql config is nil")
	}
	c.setDefaults()
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return xerrors.Wrap(ErrConfig, "mysql host is required")
	}
	if c.Username == "" {
		return xerrors.Wrap(ErrConfig, "mysql username is required")
	}
	if c.Database == "" {
		return xerrors.Wrap(ErrConfig, "mysql database is required")
	}
	return nil
}

// dsn 构建 MySQL DSN
func (c *MySQLConfig) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}
