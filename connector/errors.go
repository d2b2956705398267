package connector

import "github.com/ceyewan/scoregate/xerrors"

// 连接器哨兵错误，统一标记为 ErrUnavailable 以便上层映射为 503
var (
	ErrNotConnected  = xerrors.Mark(xerrors.New("connector: not connected"), xerrors.ErrUnavailable)
	ErrAlreadyClosed = xerrors.New("connector: already closed")
	ErrConnection    = xerrors.Mark(xerrors.New("connector: connection failed"), xerrors.ErrUnavailable)
	ErrHealthCheck   = xerrors.Mark(xerrors.New("connector: health check failed"), xerrors.ErrUnavailable)
	ErrConfig        = xerrors.Mark(xerrors.New("connector: invalid config"), xerrors.ErrInvalidInput)
)
