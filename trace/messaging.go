package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName scoregate 内部 Tracer 名称
const TracerName = "github.com/ceyewan/scoregate"

// Tracer 返回全局 TracerProvider 上的 scoregate Tracer
func Tracer() oteltrace.Tracer {
	return otel.Tracer(TracerName)
}

// MessagingMeta 事件转发的消息属性
type MessagingMeta struct {
	System      string
	Destination string
}

// StartProducerSpan 启动生产者 Span，并返回注入了上下文的 headers
func StartProducerSpan(ctx context.Context, meta MessagingMeta, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span, map[string]string) {
	if ctx == nil {
		ctx = context.Background()
	}

	spanCtx, span := Tracer().Start(ctx, SpanNamePublish(meta.Destination),
		oteltrace.WithSpanKind(oteltrace.SpanKindProducer))

	kv := make([]attribute.KeyValue, 0, len(attrs)+3)
	if meta.System != "" {
		kv = append(kv, attribute.String(AttrMessagingSystem, meta.System))
	}
	if meta.Destination != "" {
		kv = append(kv, attribute.String(AttrMessagingDestination, meta.Destination))
	}
	kv = append(kv, attribute.String(AttrMessagingOperation, MessagingOperationPublish))
	span.SetAttributes(append(kv, attrs...)...)

	headers := map[string]string{}
	Inject(spanCtx, headers)
	return spanCtx, span, headers
}

// StartClientSpan 启动一次上游调用的客户端 Span
func StartClientSpan(ctx context.Context, provider, operation string) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, provider+"."+operation,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String(AttrProvider, provider),
			attribute.String(AttrOperation, operation),
		),
	)
}

// MarkSpanError err 不为 nil 时记录错误并标记 Span 状态
func MarkSpanError(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
