package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts zerolog to gorm's logger.Interface.
//
// Statements slower than SlowThreshold are logged at warn level; failures at
// error level. "record not found" is an expected outcome for lookups and is
// not logged as an error.
type GormLogger struct {
	logger        zerolog.Logger
	level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// LogStatements logs every statement at debug level (local env).
	LogStatements bool
}

// NewGormLogger builds a gorm logger writing through logger.
func NewGormLogger(logger zerolog.Logger, slowThreshold time.Duration, logStatements bool) *GormLogger {
	return &GormLogger{
		logger:        logger.With().Str("database", "gorm").Logger(),
		level:         gormlogger.Warn,
		SlowThreshold: slowThreshold,
		LogStatements: logStatements,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn().Dur("elapsed", elapsed).Dur("threshold", l.SlowThreshold).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.LogStatements:
		sql, rows := fc()
		l.logger.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
