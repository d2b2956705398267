package eventbus

import "github.com/ceyewan/scoregate/xerrors"

var (
	// ErrHandlerPanic 订阅者 panic 后被恢复
	ErrHandlerPanic = xerrors.New("eventbus: handler panicked")
	// ErrQueueFull 异步订阅者的队列已满，事件被丢弃
	ErrQueueFull = xerrors.New("eventbus: subscriber queue full")

	ErrConnectorNil = xerrors.New("eventbus: connector is nil")
	ErrEncode       = xerrors.New("eventbus: encode event")
)
