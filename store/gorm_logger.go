package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/xerrors"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger 将 GORM 日志适配到 clog
type gormLogger struct {
	logger clog.Logger
	level  logger.LogLevel
}

func newGormLogger(log clog.Logger, silent bool) logger.Interface {
	level := logger.Warn
	if silent {
		level = logger.Silent
	}
	return &gormLogger{logger: log, level: level}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace 记录 SQL 执行，记录不存在不算错误
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !isNotFound(err) && l.level >= logger.Error:
		sql, rows := fc()
		l.logger.ErrorContext(ctx, "sql error",
			clog.Duration("duration", elapsed),
			clog.String("sql", sql),
			clog.Int64("rows", rows),
			clog.Error(err))
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		l.logger.WarnContext(ctx, "slow sql",
			clog.Duration("duration", elapsed),
			clog.String("sql", sql),
			clog.Int64("rows", rows))
	case l.level >= logger.Info:
		sql, rows := fc()
		l.logger.DebugContext(ctx, "sql",
			clog.Duration("duration", elapsed),
			clog.String("sql", sql),
			clog.Int64("rows", rows))
	}
}

func isNotFound(err error) bool {
	return xerrors.Is(err, gorm.ErrRecordNotFound)
}
