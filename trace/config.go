package trace

// Config 链路追踪配置
//
//	trace:
//	  enabled: true
//	  service_name: "scoregate"
//	  endpoint: "localhost:4317"
//	  sampler: 0.1
//	  batcher: "batch"
//	  insecure: true
type Config struct {
	// Enabled 为 false 时只安装不导出的 TracerProvider，仍会生成 TraceID
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Sampler     float64 `mapstructure:"sampler"`
	Batcher     string  `mapstructure:"batcher"` // batch|simple
	Insecure    bool    `mapstructure:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}
