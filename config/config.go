package config

import (
	"strings"

	"github.com/ceyewan/scoregate/clog"
)

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string // 搜索路径，默认 [".", "./configs"]
	FileType  string   // yaml|json|toml，默认 yaml
	EnvPrefix string   // 环境变量前缀，默认 "SCOREGATE"
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./configs"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "SCOREGATE"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return newLoader(cfg, o), nil
}
