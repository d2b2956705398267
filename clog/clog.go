package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用 NewDevDefaultConfig("scoregate")。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("scoregate")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return newLogger(config, applyOptions(opts...))
}

// NewDevDefaultConfig 开发环境默认配置：debug 级别、console 格式、输出到 stdout
func NewDevDefaultConfig(sourceRoot string) *Config {
	return &Config{
		Level:      "debug",
		Format:     "console",
		Output:     "stdout",
		AddSource:  true,
		SourceRoot: sourceRoot,
	}
}

// NewProdDefaultConfig 生产环境默认配置：info 级别、json 格式
func NewProdDefaultConfig(sourceRoot string) *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		AddSource:  true,
		SourceRoot: sourceRoot,
	}
}
