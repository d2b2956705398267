package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

// AsyncConfig 异步订阅的队列配置
type AsyncConfig struct {
	// QueueSize 等待处理的事件上限，队列满时丢弃新事件（默认：64）
	QueueSize int `mapstructure:"queue_size"`
	// Timeout 单个事件的处理时限（默认：5s）
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *AsyncConfig) setDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

type job struct {
	ctx context.Context
	ev  Event
}

type worker struct {
	pattern string
	handler Handler
	timeout time.Duration
	logger  clog.Logger
	inst    *instruments

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}
}

// SubscribeAsync 注册异步订阅：总线只把事件放入有界队列，
// 由单独的 goroutine 按发布顺序调用 handler。
//
// handler 收到的 ctx 保留发布方的值但不随发布方取消，并带有 Timeout 时限。
// 队列满时事件被丢弃，总线记录一次 reason=dropped 的处理失败。
// 返回的函数取消订阅并等待队列中的事件处理完毕，可重复调用。
func SubscribeAsync(b Bus, pattern string, handler Handler, cfg AsyncConfig, opts ...Option) (unsubscribe func()) {
	cfg.setDefaults()
	o := applyOptions(opts...)

	w := &worker{
		pattern: pattern,
		handler: handler,
		timeout: cfg.Timeout,
		logger:  o.logger,
		inst:    newInstruments(o.meter),
		queue:   make(chan job, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go w.run()

	cancel := b.Subscribe(pattern, w.enqueue)
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			w.close()
		})
	}
}

func (w *worker) enqueue(ctx context.Context, ev Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- job{ctx: context.WithoutCancel(ctx), ev: ev}:
		return nil
	default:
		return xerrors.Wrap(ErrQueueFull, w.pattern)
	}
}

func (w *worker) run() {
	defer close(w.done)
	for j := range w.queue {
		w.process(j)
	}
}

func (w *worker) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, w.timeout)
	defer cancel()
	if err := invoke(ctx, w.handler, j.ev); err != nil {
		reportFailure(ctx, w.logger, w.inst, w.pattern, j.ev, err)
	}
}

func (w *worker) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}
