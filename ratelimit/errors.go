package ratelimit

import "github.com/ceyewan/scoregate/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("ratelimit: config is nil")

	// ErrConnectorNil redis 驱动缺少连接器
	ErrConnectorNil = xerrors.New("ratelimit: connector is nil")

	// ErrInvalidLimit 容量或窗口非法
	ErrInvalidLimit = xerrors.Mark(xerrors.New("ratelimit: invalid limit"), xerrors.ErrInvalidInput)

	// ErrUnknownDriver 未知驱动
	ErrUnknownDriver = xerrors.Mark(xerrors.New("ratelimit: unknown driver"), xerrors.ErrInvalidInput)

	// ErrAcquireTimeout 在超时内没有拿到令牌
	ErrAcquireTimeout = xerrors.Mark(xerrors.New("ratelimit: acquire timeout"), xerrors.ErrTimeout)
)
