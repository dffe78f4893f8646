// Package log provides the levelled logging helpers used throughout contahub-app-sheets.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()
var guard sync.RWMutex

// Init replaces the default no-op logger with a zap production logger. Debug enables
// DEBUG level messages.
func Init(debug bool) error {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to initialise logger (%w)", err)
	}

	Set(l)

	return nil
}

// Set installs an existing zap logger. Mostly useful for tests (zaptest, observer).
func Set(l *zap.Logger) {
	guard.Lock()
	defer guard.Unlock()

	logger = l.Sugar()
}

// Logger returns the underlying zap logger.
func Logger() *zap.Logger {
	guard.RLock()
	defer guard.RUnlock()

	return logger.Desugar()
}

func Sync() {
	guard.RLock()
	defer guard.RUnlock()

	_ = logger.Sync()
}

func Debugf(format string, args ...any) {
	sugar().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	sugar().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	sugar().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	sugar().Errorf(format, args...)
}

func sugar() *zap.SugaredLogger {
	guard.RLock()
	defer guard.RUnlock()

	return logger
}
