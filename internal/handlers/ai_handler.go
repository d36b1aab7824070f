// File: internal/handlers/ai_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-subportal/internal/domain"
	"github.com/iyunix/go-subportal/internal/middleware"
	"github.com/iyunix/go-subportal/internal/services/ai"
)

// AIInvoker is the part of services.AIService the HTTP layer needs.
type AIInvoker interface {
	Invoke(ctx context.Context, clientID, function string, payload json.RawMessage, opts ai.InvokeOptions) (json.RawMessage, error)
	State(clientID string) ai.State
	RecentInvocations(ctx context.Context, clientID string, limit int) ([]domain.Invocation, error)
}

type AIHandler struct {
	AIService AIInvoker
	Logger    middleware.Logger
}

func NewAIHandler(service AIInvoker, logger middleware.Logger) *AIHandler {
	return &AIHandler{AIService: service, Logger: logger}
}

type invokeRequest struct {
	Payload json.RawMessage  `json:"payload"`
	Options ai.InvokeOptions `json:"options"`
}

type invokeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// InvokeFunction runs a named remote function for the calling client.
func (h *AIHandler) InvokeFunction(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	function := mux.Vars(r)["name"]

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("null")
	}

	result, err := h.AIService.Invoke(r.Context(), clientID, function, req.Payload, req.Options)
	if err != nil {
		msg := ai.UserMessage(err)
		writeJSON(w, invokeStatus(err), invokeResponse{Result: json.RawMessage("null"), Error: &msg})
		return
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, invokeResponse{Result: result})
}

func invokeStatus(err error) int {
	switch {
	case ai.IsBusy(err):
		return http.StatusConflict
	case ai.IsValidation(err):
		return http.StatusBadRequest
	case ai.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// GetState reports whether the caller has a request in flight and its last error.
func (h *AIHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.AIService.State(middleware.ClientID(r.Context())))
}

func (h *AIHandler) GetInvocations(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	invocations, err := h.AIService.RecentInvocations(r.Context(), clientID, queryLimit(r, 50))
	if err != nil {
		h.Logger.Error("failed to list invocations", "client", clientID, "error", err)
		writeError(w, "Could not retrieve invocations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, invocations)
}
