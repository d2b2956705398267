package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// NamespaceKey 日志中命名空间的字段名
const NamespaceKey = "namespace"

type loggerImpl struct {
	handler   *levelHandler
	options   *options
	namespace string
	attrs     []slog.Attr
}

func newLogger(config *Config, o *options) (Logger, error) {
	h, err := newHandler(config, o)
	if err != nil {
		return nil, err
	}
	return &loggerImpl{
		handler:   h,
		options:   o,
		namespace: strings.Join(o.namespaceParts, "."),
	}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, fields...)
	return &loggerImpl{handler: l.handler, options: l.options, namespace: l.namespace, attrs: attrs}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	ns := strings.Join(parts, ".")
	if l.namespace != "" && ns != "" {
		ns = l.namespace + "." + ns
	} else if ns == "" {
		ns = l.namespace
	}
	return &loggerImpl{handler: l.handler, options: l.options, namespace: ns, attrs: l.attrs}
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	sl := level.slogLevel()
	if !l.handler.Enabled(ctx, sl) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields)+4)
	if l.namespace != "" {
		attrs = append(attrs, slog.String(NamespaceKey, l.namespace))
	}
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, fields...)
	attrs = contextAttrs(ctx, l.options, attrs)

	// skip: runtime.Callers, log, Info/InfoContext
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), sl, msg, pcs[0])
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, record)

	if level == FatalLevel {
		l.Flush()
		os.Exit(1)
	}
}

func (l *loggerImpl) SetLevel(level Level) error {
	l.handler.levelVar.Set(level.slogLevel())
	return nil
}

func (l *loggerImpl) Flush() {
	if f, ok := l.handler.closer.(*os.File); ok {
		_ = f.Sync()
	}
}
