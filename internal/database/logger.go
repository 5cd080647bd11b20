package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// gormLogger routes gorm messages to the application logger. Statements are
// never logged since their bound values carry ciphertexts and token digests.
type gormLogger struct{}

func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	logger.LogDebugf(msg, data...)
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	logger.LogWarnf(msg, data...)
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	logger.LogErrorf(msg, data...)
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		_, rows := fc()
		logger.LogError(fmt.Errorf("query failed after %s (rows %d): %w", elapsed, rows, err))
	case elapsed > slowQueryThreshold:
		_, rows := fc()
		logger.LogWarnf("Slow query: %s (rows %d)", elapsed, rows)
	}
}
