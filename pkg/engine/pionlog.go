package engine

import (
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// slogLoggerFactory adapts slog into the LoggerFactory pion/dtls expects.
type slogLoggerFactory struct {
	base *slog.Logger
}

func (f *slogLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &slogLeveledLogger{logger: f.base.With(slog.String("scope", scope))}
}

// slogLeveledLogger routes pion's leveled log calls to slog. Trace maps to
// Debug; slog has no finer level.
type slogLeveledLogger struct {
	logger *slog.Logger
}

func (l *slogLeveledLogger) Trace(msg string) { l.logger.Debug(msg) }
func (l *slogLeveledLogger) Tracef(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogLeveledLogger) Debug(msg string) { l.logger.Debug(msg) }
func (l *slogLeveledLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogLeveledLogger) Info(msg string) { l.logger.Info(msg) }
func (l *slogLeveledLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogLeveledLogger) Warn(msg string) { l.logger.Warn(msg) }
func (l *slogLeveledLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogLeveledLogger) Error(msg string) { l.logger.Error(msg) }
func (l *slogLeveledLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// Compile-time interface satisfaction checks.
var (
	_ logging.LoggerFactory = (*slogLoggerFactory)(nil)
	_ logging.LeveledLogger = (*slogLeveledLogger)(nil)
)
