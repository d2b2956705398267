package clog

import (
	"fmt"
	"strings"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置
//
//	Level:      debug|info|warn|error|fatal
//	Format:     json|console
//	Output:     stdout|stderr|buffer|<文件路径>
//	AddSource:  是否输出调用位置（caller 字段）
//	SourceRoot: 裁剪 caller 路径时使用的前缀
type Config struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Format     string `json:"format" yaml:"format" mapstructure:"format"`
	Output     string `json:"output" yaml:"output" mapstructure:"output"`
	AddSource  bool   `json:"addSource" yaml:"addSource" mapstructure:"add_source"`
	SourceRoot string `json:"sourceRoot" yaml:"sourceRoot" mapstructure:"source_root"`
}

// validate 填充默认值并校验 Level 与 Format
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}
