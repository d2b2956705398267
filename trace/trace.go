// Package trace 初始化 OpenTelemetry 链路追踪，并提供 scoregate 内部使用的 Span 辅助函数。
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ceyewan/scoregate/xerrors"
)

// Init 初始化全局 TracerProvider 和 W3C 传播器
//
// cfg.Enabled 为 false 时等价于 Discard。返回的 shutdown 应在进程退出前调用以刷新剩余 Span。
func Init(cfg *Config) (func(context.Context) error, error) {
	if cfg != nil && !cfg.Enabled {
		return Discard(cfg.ServiceName)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	ctx := context.Background()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(5 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: create otlp exporter")
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampler))),
	}
	if cfg.Batcher == "simple" {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exporter))
	} else {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	install(tp)
	return tp.Shutdown, nil
}

// Discard 安装不导出的 TracerProvider，仅用于生成 TraceID 供日志关联
func Discard(serviceName string) (func(context.Context) error, error) {
	res, err := newResource(context.Background(), serviceName)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	install(tp)
	return tp.Shutdown, nil
}

func install(tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	var attrs []attribute.KeyValue
	if serviceName != "" {
		attrs = append(attrs, attribute.String("service.name", serviceName))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: create resource")
	}
	return res, nil
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: config is required")
	}
	if cfg.ServiceName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: service_name is required")
	}
	if cfg.Endpoint == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: endpoint is required")
	}
	if cfg.Sampler < 0 || cfg.Sampler > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: sampler must be between 0 and 1, got %v", cfg.Sampler)
	}
	if cfg.Batcher != "" && cfg.Batcher != "batch" && cfg.Batcher != "simple" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: batcher must be \"batch\" or \"simple\", got %q", cfg.Batcher)
	}
	return nil
}
