// Package eventbus 提供进程内的发布订阅总线，用于广播缓存命中、上游拉取等事件。
//
// 事件名形如 "<domain>.<action>"，例如 "scoreboard.cache-hit"、"game.fetched"。
// 订阅支持三种模式：精确名称、"<domain>.*" 和 "*"。
//
// 分发是同步的，但订阅者的错误与 panic 都被总线吸收并记录，
// 不会传回发布者：发布方只负责通知，不依赖订阅者的结果。
// 会阻塞的订阅者（写数据库、调用外部服务）通过 SubscribeAsync 注册，
// 由独立的 goroutine 按有界队列处理，发布方只等待入队。
//
//	bus := eventbus.New(eventbus.WithLogger(logger))
//	unsubscribe := bus.Subscribe("scoreboard.*", func(ctx context.Context, ev eventbus.Event) error {
//		logger.Info("event", clog.String("name", ev.Name))
//		return nil
//	})
//	defer unsubscribe()
//	bus.Emit(ctx, "scoreboard.fetched", map[string]any{"total": 16})
package eventbus

import (
	"context"
	"time"
)

// Event 总线上传递的事件
type Event struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data,omitempty"`
	// Payload 进程内订阅者可用的原始对象，不参与序列化
	Payload   any       `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler 事件处理函数，返回的错误只会被记录
type Handler func(ctx context.Context, ev Event) error

// Bus 事件总线
type Bus interface {
	// Emit 以当前时间构造事件并发布
	Emit(ctx context.Context, name string, data map[string]any)
	// Publish 发布完整事件，Timestamp 为零时自动填充
	Publish(ctx context.Context, ev Event)
	// Subscribe 注册订阅，返回的函数用于取消订阅，可重复调用
	Subscribe(pattern string, handler Handler) (unsubscribe func())
}
