package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ceyewan/scoregate/xerrors"
)

// Sink 把总线事件转发到外部消息系统
type Sink interface {
	Forward(ctx context.Context, ev Event) error
	Close() error
}

// Attach 把 sink 注册为 pattern 的订阅者，转发失败只会被总线记录
func Attach(b Bus, pattern string, sink Sink) (detach func()) {
	return b.Subscribe(pattern, sink.Forward)
}

// Encode 事件的线上格式：{"name","data","timestamp"}
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, xerrors.Wrapf(ErrEncode, "%s: %v", ev.Name, err)
	}
	return data, nil
}
