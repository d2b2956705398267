package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/xerrors"
)

type subscription struct {
	id      uint64
	pattern string
	handler Handler
}

type bus struct {
	logger clog.Logger
	inst   *instruments
	now    func() time.Time

	mu     sync.RWMutex
	subs   []*subscription
	nextID atomic.Uint64
}

// New 创建进程内事件总线
func New(opts ...Option) Bus {
	o := applyOptions(opts...)
	return &bus{
		logger: o.logger,
		inst:   newInstruments(o.meter),
		now:    time.Now,
	}
}

func (b *bus) Emit(ctx context.Context, name string, data map[string]any) {
	b.Publish(ctx, Event{Name: name, Data: data})
}

func (b *bus) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}
	b.inst.emitted.Inc(ctx, metrics.L("event", ev.Name))

	// 复制订阅列表，处理函数中可以安全地订阅或取消订阅
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if Match(s.pattern, ev.Name) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if err := invoke(ctx, s.handler, ev); err != nil {
			reportFailure(ctx, b.logger, b.inst, s.pattern, ev, err)
		}
	}
}

// invoke 调用单个订阅者，把 panic 转换为错误
func invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Wrap(ErrHandlerPanic, fmt.Sprint(r))
		}
	}()
	return h(ctx, ev)
}

func reportFailure(ctx context.Context, logger clog.Logger, inst *instruments, pattern string, ev Event, err error) {
	reason := "error"
	switch {
	case xerrors.Is(err, ErrHandlerPanic):
		reason = "panic"
	case xerrors.Is(err, ErrQueueFull):
		reason = "dropped"
	}
	inst.handlerErrors.Inc(ctx, metrics.L("event", ev.Name), metrics.L("reason", reason))
	logger.ErrorContext(ctx, "event handler failed",
		clog.String("event", ev.Name),
		clog.String("pattern", pattern),
		clog.Error(err))
}

func (b *bus) Subscribe(pattern string, handler Handler) func() {
	s := &subscription{id: b.nextID.Add(1), pattern: pattern, handler: handler}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, cur := range b.subs {
				if cur.id == s.id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Match 判断事件名是否匹配订阅模式：
// "*" 匹配全部，"<domain>.*" 匹配该 domain 下的所有事件，
// "*.<action>" 匹配所有 domain 的同一动作，其余按名称精确匹配
func Match(pattern, name string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(name, pattern[1:])
	default:
		return pattern == name
	}
}
