// Package clog 为 scoregate 提供基于 slog 的结构化日志组件。
//
// 每个组件通过 WithNamespace 派生自己的子 Logger，日志中会带上
// namespace 字段（例如 "scoregate.provider.espn"），便于按模块过滤。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"},
//	    clog.WithNamespace("scoregate"),
//	    clog.WithStandardContext(),
//	)
//	logger.Info("gateway started", clog.String("addr", ":8080"))
package clog

import "context"

// Logger 日志接口
//
// 每个级别都有带 Context 和不带 Context 的版本，带 Context 的版本
// 会按 Option 中配置的规则提取 request_id、trace_id 等字段。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 追加命名空间，子 Logger 的命名空间为 "parent.child"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对共享同一 handler 的所有子 Logger 生效
	SetLevel(level Level) error

	// Flush 强制同步缓冲区
	Flush()
}
