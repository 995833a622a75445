package gormdb

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
)

// gormLogger 将 gorm 日志转发到 logging 组件.
type gormLogger struct {
	level logger.LogLevel
	slow  time.Duration
}

func newGormLogger(cfg *Config) logger.Interface {
	l := &gormLogger{level: logger.Warn, slow: 200 * time.Millisecond}
	if cfg == nil {
		return l
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		l.level = logger.Silent
	case "error":
		l.level = logger.Error
	case "info", "debug":
		l.level = logger.Info
	}
	if cfg.SlowThreshold > 0 {
		l.slow = cfg.SlowThreshold
	}
	return l
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	nl := *l
	nl.level = level
	return &nl
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		logging.Infof(ctx, "[gorm] "+msg, data...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		logging.Warnf(ctx, "[gorm] "+msg, data...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		logging.Errorf(ctx, "[gorm] "+msg, data...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sqlStr, rows := fc()
		logging.Errorf(ctx, "[gorm] error elapsed=%s rows=%d sql=%s err=%v", elapsed, rows, sqlStr, err)
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		sqlStr, rows := fc()
		logging.Warnf(ctx, "[gorm] slow elapsed=%s threshold=%s rows=%d sql=%s", elapsed, l.slow, rows, sqlStr)
	case l.level >= logger.Info:
		sqlStr, rows := fc()
		logging.Debugf(ctx, "[gorm] elapsed=%s rows=%d sql=%s", elapsed, rows, sqlStr)
	}
}
