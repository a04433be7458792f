// Package monitoring owns process-wide logging. Packages log through Logf
// for printf-style diagnostics or through L for structured fields; both are
// backed by the zap logger installed with Init or Use.
package monitoring

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Logf is the package-level diagnostic logger. It forwards to the zap
// sugared logger at info level once Init or Use has run, and may be
// replaced by SetLogger. Tests can redirect or mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	S().Infof(format, v...)
}

// Init builds a zap logger and installs it. Development mode writes
// human-readable console output at debug level; otherwise JSON at info.
func Init(development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// Use installs l as the process logger and zap global. A nil l installs
// a no-op logger.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	_ = prev.Sync()
	zap.ReplaceGlobals(l)
}

// L returns the structured logger. It is never nil.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// S returns the sugared form of L.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

// SetLogger replaces Logf. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
