package cache

import "time"

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config 缓存配置
//
//	cache:
//	  driver: memory          # memory | redis
//	  capacity: 10000
//	  sweep_interval: 60s
//	  prefix: "scoregate:cache:"
//	  serializer: json        # json | msgpack
type Config struct {
	Driver string `mapstructure:"driver"`

	// Capacity memory 驱动的最大条目数（默认：10000）
	Capacity int `mapstructure:"capacity"`
	// SweepInterval memory 驱动的后台清理间隔（默认：60s）
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// Prefix redis 驱动的 key 前缀（默认："scoregate:cache:"）
	Prefix string `mapstructure:"prefix"`
	// Serializer redis 驱动的序列化方式（默认：json）
	Serializer string `mapstructure:"serializer"`

	// Guard redis 往返的熔断保护
	Guard GuardConfig `mapstructure:"guard"`
}

// GuardConfig Redis 往返熔断配置
type GuardConfig struct {
	// ConsecutiveFailures 连续失败多少次后打开（默认：5）
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
	// OpenTimeout 打开状态持续时间（默认：10s）
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 60 * time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "scoregate:cache:"
	}
	if c.Serializer == "" {
		c.Serializer = "json"
	}
	if c.Guard.ConsecutiveFailures == 0 {
		c.Guard.ConsecutiveFailures = 5
	}
	if c.Guard.OpenTimeout <= 0 {
		c.Guard.OpenTimeout = 10 * time.Second
	}
}
