// Package config 为 scoregate 提供统一的配置加载能力，基于 Viper 实现。
//
// 配置优先级（高到低）：环境变量 > .env 文件 > {name}.{env}.yaml > {name}.yaml > 默认值。
// 环境变量名为 {PREFIX}_{KEY}，key 中的 "." 替换为 "_"，
// 例如 SCOREGATE_PROVIDER_BASE_URL 覆盖 provider.base_url。
//
// 基本使用：
//
//	loader, _ := config.New(&config.Config{Name: "scoregate", EnvPrefix: "SCOREGATE"},
//	    config.WithDefaults(map[string]any{"http.addr": ":8080"}),
//	)
//	if err := loader.Load(ctx); err != nil {
//	    return err
//	}
//	var cfg AppConfig
//	_ = loader.Unmarshal(&cfg)
//
//	ch, _ := loader.Watch(ctx, "log.level")
//	for ev := range ch {
//	    // 热更新
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器：加载、解析和监听配置变化
type Loader interface {
	// Load 从所有来源加载配置，并开始监听配置文件变化
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体（mapstructure 标签）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听指定 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 检查 WithRequired 声明的 key 是否都已设置
	Validate() error

	// ConfigFileUsed 返回实际加载的配置文件路径，没有时为空
	ConfigFileUsed() string
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
