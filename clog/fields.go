package clog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

// String 创建字符串字段
func String(k, v string) Field {
	return slog.String(k, v)
}

// Int 创建整数字段
func Int(k string, v int) Field {
	return slog.Int(k, v)
}

func Int64(k string, v int64) Field {
	return slog.Int64(k, v)
}

func Float64(k string, v float64) Field {
	return slog.Float64(k, v)
}

func Bool(k string, v bool) Field {
	return slog.Bool(k, v)
}

func Time(k string, v time.Time) Field {
	return slog.Time(k, v)
}

// Duration 创建时间长度字段
func Duration(k string, v time.Duration) Field {
	return slog.Duration(k, v)
}

// Any 创建任意类型字段
func Any(k string, v any) Field {
	return slog.Any(k, v)
}

// Error 只输出错误消息：err_msg="..."
//
// err 为 nil 时返回空 Attr，slog 会忽略它。
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 输出嵌套结构 error={msg, code}
func ErrorWithCode(err error, code string) Field {
	if err == nil {
		return slog.Group("error", slog.String("code", code))
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("code", code),
	)
}

// ErrorWithStack 输出 error={msg, type, stack}，仅用于排查严重错误
func ErrorWithStack(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
		slog.String("stack", stackTrace(3)),
	)
}

func stackTrace(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return sb.String()
}
