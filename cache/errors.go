package cache

import "github.com/ceyewan/scoregate/xerrors"

var (
	// ErrMiss key 不存在或已过期
	ErrMiss = xerrors.New("cache: miss")

	ErrConfigNil     = xerrors.New("cache: config is nil")
	ErrConnectorNil  = xerrors.New("cache: redis connector is required for redis driver")
	ErrUnknownDriver = xerrors.Mark(xerrors.New("cache: unknown driver"), xerrors.ErrInvalidInput)
	ErrInvalidDest   = xerrors.New("cache: dest must be a non-nil pointer")
	ErrClosed        = xerrors.New("cache: closed")

	// ErrUnavailable 后端不可用（redis 熔断打开）
	ErrUnavailable = xerrors.Mark(xerrors.New("cache: backend unavailable"), xerrors.ErrUnavailable)
)
