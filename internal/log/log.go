// Package log provides the process-wide zap logger.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

var base = zap.NewNop()

// sugar backs the package-level helpers, one frame above the caller.
var sugar = base.Sugar()

// Init initializes the package-level logger. Until Init is called all
// output is discarded, which keeps tests quiet.
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	set(zapLogger)
	return nil
}

func set(l *zap.Logger) {
	base = l
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Logger returns the sugared logger, for components that take one at construction.
func Logger() *zap.SugaredLogger {
	return base.Sugar()
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = base.Sync()
}

func Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	sugar.Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	sugar.Errorw(msg, keysAndValues...)
}
