// Package logging is a small leveled wrapper over zap, used by every
// component instead of ad hoc fmt.Errorf/log.Printf calls.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// Config selects the logging backend. Level is one of trace, debug, info,
// warn, error; trace maps onto zap's Debug level with a "trace" field
// since zap has no native trace level.
type Config struct {
	Level       string
	Development bool
}

// Init builds the process-wide logger. Must be called once during startup
// before any component logs.
func Init(cfg Config) error {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := levelFor(cfg.Level)
	if err != nil {
		return err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("logging: build: %w", err)
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func levelFor(name string) (zap.AtomicLevel, error) {
	switch name {
	case "", "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	case "trace", "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel), nil
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel), nil
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel), nil
	default:
		return zap.AtomicLevel{}, fmt.Errorf("logging: unknown level %q", name)
	}
}

func checkLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		panic("logging: Init must be called before logging")
	}
	return logger
}

// Trace logs at debug level with an explicit "trace" marker field, since
// zap has no trace level of its own.
func Trace(msg string, fields ...zap.Field) {
	checkLogger().Debug(msg, append(fields, zap.Bool("trace", true))...)
}

func Debug(msg string, fields ...zap.Field) { checkLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { checkLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { checkLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { checkLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { checkLogger().Fatal(msg, fields...) }

// Sync flushes any buffered log entries. Call before process exit.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

// With returns a child logger with the given fields attached, for a
// component that wants to avoid repeating e.g. a peer ID on every call.
func With(fields ...zap.Field) *zap.Logger {
	return checkLogger().With(fields...)
}
