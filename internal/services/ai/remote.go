package ai

import (
	"context"
	"net/http"
)

// NewFunctionInvoker builds the remote collaborator for the configured backend.
func NewFunctionInvoker(config *Config, client *http.Client) (FunctionInvoker, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	switch config.Backend {
	case BackendOpenAI:
		return NewOpenAIFunctionInvoker(config), nil
	default:
		return NewEdgeFunctionClient(config, client), nil
	}
}

// LogNotifier reports terminal failures through the logger only.
type LogNotifier struct {
	logger Logger
}

func NewLogNotifier(logger Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyError(_ context.Context, clientID, message string) {
	n.logger.Error("notification", "client", clientID, "message", message)
}
