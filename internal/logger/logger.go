package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the subset of zap.SugaredLogger the service logs through.
//
// Loggers should be injected. Tests should use [Test] or [Nop]; [New] is for
// the running process.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Infof(format string, values ...any)

	// Sync flushes any buffered log entries.
	Sync() error
}

// New returns a production JSON Logger at the named level ("debug", "info", ...).
func New(level string) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level.SetLevel(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return core.Sugar(), nil
}

// Test returns a Logger that writes through tb.
func Test(tb testing.TB) Logger {
	tb.Helper()
	return zaptest.NewLogger(tb).Sugar()
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return zap.New(zapcore.NewNopCore()).Sugar()
}
