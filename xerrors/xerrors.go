// Package xerrors 提供 scoregate 统一的错误处理工具与共享哨兵错误。
//
// 各组件在自己的 errors.go 中基于这里的哨兵派生具体错误，
// HTTP 层只需要 xerrors.Is 判断类别即可映射状态码。
package xerrors

import (
	"errors"
	"fmt"
)

// 共享哨兵错误，按错误类别划分
var (
	// ErrNotFound 请求的实体不存在（上游调用本身成功）
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput 调用方参数非法
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable 依赖暂不可用（熔断打开、Redis 宕机等），应快速失败
	ErrUnavailable = errors.New("unavailable")
	// ErrTimeout 在限定时间内未完成
	ErrTimeout = errors.New("timeout")
)

// 机器可读错误码，出现在 HTTP 错误响应中
const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnavailable  = "UNAVAILABLE"
	CodeTimeout      = "TIMEOUT"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeInternal     = "INTERNAL"
)

// Wrap 用上下文信息包装错误，保留错误链。err 为 nil 时返回 nil。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Mark 让 err 同时匹配 kind，用于把组件错误归入共享类别：
//
//	var ErrAcquireTimeout = xerrors.Mark(errors.New("ratelimit: acquire timeout"), xerrors.ErrTimeout)
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, kind: kind}
}

type markedError struct {
	err  error
	kind error
}

func (m *markedError) Error() string   { return m.err.Error() }
func (m *markedError) Unwrap() []error { return []error{m.err, m.kind} }

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码；链上没有 CodedError 时按哨兵类别推断。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// Must 如果 err 不为 nil，则 panic。仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 合并多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个，忽略 nil。关闭多个资源时使用。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
