// File: internal/services/ai/interface.go
package ai

import (
	"context"
	"encoding/json"
)

// FunctionInvoker performs one remote operation (an edge function or a model call).
type FunctionInvoker interface {
	InvokeFunction(ctx context.Context, name string, payload json.RawMessage) (json.RawMessage, error)
}

// Notifier receives the user-facing message of a terminal failure.
type Notifier interface {
	NotifyError(ctx context.Context, clientID, message string)
}

// Logger interface for AI operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Operation is a single attempt of a remote call. It must observe ctx to honour the abort signal.
type Operation[T any] func(ctx context.Context) (T, error)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
