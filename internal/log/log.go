package log

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init builds the process logger. Records go to stderr, and also to file
// when one is given.
func Init(level, file string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	if file != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the process logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Sync flushes buffered records.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = logger.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func write(level zapcore.Level, kind, action string, err error, fields map[string]any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	zf := []zap.Field{zap.String("kind", kind), zap.String("action", action)}
	if err != nil {
		zf = append(zf, zap.String("err", err.Error()))
	}
	if len(fields) > 0 {
		zf = append(zf, zap.Any("fields", fields))
	}
	if ce := l.Check(level, action); ce != nil {
		ce.Write(zf...)
	}
}

func Debug(action string, fields map[string]any) {
	write(zapcore.DebugLevel, "debug", action, nil, fields)
}
func Info(action string, fields map[string]any) {
	write(zapcore.InfoLevel, "info", action, nil, fields)
}
func Audit(action string, fields map[string]any) {
	write(zapcore.InfoLevel, "audit", action, nil, fields)
}
func Warn(action string, fields map[string]any) {
	write(zapcore.WarnLevel, "warn", action, nil, fields)
}
func Error(action string, err error, fields map[string]any) {
	write(zapcore.ErrorLevel, "error", action, err, fields)
}
