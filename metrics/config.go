package metrics

// Config 指标配置
//
//	metrics:
//	  enabled: true
//	  service_name: "scoregate"
//	  version: "v0.1.0"
//	  port: 0            # >0 时单独监听，否则由 HTTP 服务挂载 /metrics
//	  path: "/metrics"
//	  runtime_metrics: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`

	// Port 大于 0 时启动独立的 Prometheus HTTP 服务
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`

	// RuntimeMetrics 是否采集 Go 运行时指标（goroutine、GC、内存）
	RuntimeMetrics bool `mapstructure:"runtime_metrics"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "scoregate"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

// NewDevDefaultConfig 开发环境默认配置：启用、不单独监听端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}
