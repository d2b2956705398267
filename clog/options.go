package clog

import "io"

// ContextField 描述从 Context 中提取字段的规则
type ContextField struct {
	Key       any    // Context 中存储的键
	FieldName string // 日志中的字段名
}

// Option 配置 Logger 实例的函数式选项
type Option func(*options)

type options struct {
	namespaceParts []string
	contextFields  []ContextField
	writer         io.Writer // Output 为 buffer 时使用
	traceContext   bool
}

// WithNamespace 设置日志命名空间，多段以 "." 连接
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// WithContextField 添加自定义的 Context 字段提取规则
func WithContextField(key any, fieldName string) Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields, ContextField{Key: key, FieldName: fieldName})
	}
}

// WithStandardContext 提取 request_id 与 trace_id
//
// 键使用 ContextKey 类型，server 中间件以同样的键写入 request_id。
func WithStandardContext() Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields,
			ContextField{Key: RequestIDKey, FieldName: "request_id"},
			ContextField{Key: TraceIDKey, FieldName: "trace_id"},
		)
	}
}

// WithTraceContext 从 OpenTelemetry SpanContext 中提取 trace_id 和 span_id
func WithTraceContext() Option {
	return func(o *options) {
		o.traceContext = true
	}
}

// WithWriter 将日志写入指定 writer（配合 Output: "buffer"，主要用于测试）
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
