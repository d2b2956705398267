package clog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// ContextKey 是 clog 识别的 Context 键类型
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	TraceIDKey   ContextKey = "trace_id"
)

// WithRequestID 将 request_id 写入 Context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFrom 读取 Context 中的 request_id
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// contextAttrs 按配置规则提取 Context 字段
func contextAttrs(ctx context.Context, o *options, attrs []slog.Attr) []slog.Attr {
	if ctx == nil || o == nil {
		return attrs
	}

	for _, cf := range o.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, val))
		}
	}

	if o.traceContext {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return attrs
}
