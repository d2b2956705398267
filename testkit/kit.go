// Package testkit 提供测试共用的依赖：静默 Logger、独立 Meter，
// 以及基于环境变量或 testcontainers 的外部连接。
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，Ctx 在测试结束时取消
func NewKit(t *testing.T) *Kit {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Kit{
		Ctx:    ctx,
		Logger: NewLogger(),
		Meter:  NewMeter(),
	}
}

// NewLogger 返回只输出 error 级别到 stderr 的 Logger，
// 设置 SCOREGATE_TEST_LOG=debug 可以打开详细日志
func NewLogger() clog.Logger {
	level := os.Getenv("SCOREGATE_TEST_LOG")
	if level == "" {
		level = "error"
	}
	logger, err := clog.New(&clog.Config{Level: level, Format: "console", Output: "stderr"},
		clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个使用独立 registry 的 Meter，多个测试之间互不冲突
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("scoregate-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)，用于 key、topic 后缀
func NewID() string {
	return uuid.New().String()[0:8]
}
