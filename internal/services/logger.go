package services

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines common logging interface for all services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ProductionLogger adapts a zap sugared logger to Logger.
type ProductionLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewProductionLogger creates a structured JSON logger at INFO level.
func NewProductionLogger(service string) *ProductionLogger {
	return newZapLogger(service, zapcore.InfoLevel, true)
}

// NewDevelopmentLogger creates a human-readable console logger.
func NewDevelopmentLogger(service string, level zapcore.Level) *ProductionLogger {
	return newZapLogger(service, level, false)
}

func newZapLogger(service string, level zapcore.Level, structured bool) *ProductionLogger {
	atomic := zap.NewAtomicLevelAt(level)

	var encoder zapcore.Encoder
	if structured {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.MessageKey = "message"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomic)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("service", service))

	return &ProductionLogger{sugar: logger.Sugar(), level: atomic}
}

// SetLevel updates the logging level
func (p *ProductionLogger) SetLevel(level zapcore.Level) {
	p.level.SetLevel(level)
}

func (p *ProductionLogger) Info(msg string, keysAndValues ...interface{}) {
	p.sugar.Infow(msg, keysAndValues...)
}

func (p *ProductionLogger) Error(msg string, keysAndValues ...interface{}) {
	p.sugar.Errorw(msg, keysAndValues...)
}

func (p *ProductionLogger) Debug(msg string, keysAndValues ...interface{}) {
	p.sugar.Debugw(msg, keysAndValues...)
}

func (p *ProductionLogger) Warn(msg string, keysAndValues ...interface{}) {
	p.sugar.Warnw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (p *ProductionLogger) Sync() error {
	return p.sugar.Sync()
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// ParseLevel maps LOG_LEVEL values to zap levels, defaulting to INFO.
func ParseLevel(value string) zapcore.Level {
	switch strings.ToUpper(value) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Environment-based logger factory
func NewLogger(service string) Logger {
	env := os.Getenv("GO_ENV")
	level := ParseLevel(os.Getenv("LOG_LEVEL"))

	if env == "test" {
		return &NoOpLogger{}
	}
	if env == "production" {
		logger := NewProductionLogger(service)
		logger.SetLevel(level)
		return logger
	}
	return NewDevelopmentLogger(service, level)
}
