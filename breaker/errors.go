package breaker

import "github.com/ceyewan/scoregate/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrInvalidThreshold 失败率阈值超出 (0, 100]
	ErrInvalidThreshold = xerrors.Mark(xerrors.New("breaker: failure threshold must be in (0, 100]"), xerrors.ErrInvalidInput)
)
