package provider

import (
	"fmt"

	"github.com/ceyewan/scoregate/xerrors"
)

var (
	// ErrUnavailable 熔断器打开，请求未发出
	ErrUnavailable = xerrors.Mark(xerrors.New("provider: circuit open"), xerrors.ErrUnavailable)

	// ErrUpstream 上游返回非 2xx 或传输失败
	ErrUpstream = xerrors.WithCode(xerrors.New("provider: upstream error"), xerrors.CodeUpstream)

	// ErrTransform 上游响应无法转换为标准结构
	ErrTransform = xerrors.WithCode(xerrors.New("provider: malformed upstream payload"), xerrors.CodeUpstream)

	// ErrRequestTimeout 单次上游请求超过 RequestTimeout
	ErrRequestTimeout = xerrors.Mark(xerrors.New("provider: request timeout"), xerrors.ErrTimeout)

	ErrLimiterNil = xerrors.New("provider: limiter is nil")
	ErrBreakerNil = xerrors.New("provider: breaker is nil")
)

// Error 携带 provider 与操作名的上游调用错误
type Error struct {
	Provider  string
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Provider, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
