package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-subportal/internal/middleware"
)

// LevelLogger adds the levels the browser may report at.
type LevelLogger interface {
	middleware.Logger
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

type LogHandler struct {
	Logger LevelLogger
}

func NewLogHandler(logger LevelLogger) *LogHandler {
	return &LogHandler{Logger: logger}
}

// LogFrontendEvent handles incoming log requests from the frontend.
func (h *LogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Message == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	kv := []interface{}{
		"client", middleware.ClientID(r.Context()),
		"message", payload.Message,
		"context", payload.Context,
	}
	switch strings.ToLower(payload.Level) {
	case "error":
		h.Logger.Error("CLIENT_LOG", kv...)
	case "warn", "warning":
		h.Logger.Warn("CLIENT_LOG", kv...)
	case "debug":
		h.Logger.Debug("CLIENT_LOG", kv...)
	default:
		h.Logger.Info("CLIENT_LOG", kv...)
	}

	w.WriteHeader(http.StatusNoContent)
}
