package config

import "github.com/ceyewan/scoregate/clog"

// Option 加载器选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	defaults map[string]any
	required []string
}

// WithLogger 设置 Logger
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("config")
		}
	}
}

// WithDefaults 设置默认值
//
// 只有 Viper 知道的 key 才能被环境变量覆盖后参与 Unmarshal，
// 所以需要从环境变量覆盖的 key 都应出现在默认值里。
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			o.defaults[k] = v
		}
	}
}

// WithRequired 声明必须存在的 key，Validate 时检查
func WithRequired(keys ...string) Option {
	return func(o *options) {
		o.required = append(o.required, keys...)
	}
}
