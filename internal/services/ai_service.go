// File: internal/services/ai_service.go
package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/go-subportal/internal/domain"
	"github.com/iyunix/go-subportal/internal/repository"
	"github.com/iyunix/go-subportal/internal/services/ai"
)

// AIService runs remote AI functions for portal clients and keeps the audit trail.
type AIService struct {
	registry    *ai.Registry
	invocations repository.InvocationRepository
	logger      Logger
}

// NewAIService builds the service. clients controls eviction of idle per-client state; nil keeps it forever.
func NewAIService(remote ai.FunctionInvoker, controller *ai.Controller, notifier ai.Notifier, defaults ai.Options, clients *ai.RegistryConfig, invocations repository.InvocationRepository, logger Logger) *AIService {
	registry := ai.NewRegistry(func(clientID string) *ai.Invoker {
		return ai.NewInvoker(clientID, remote, controller, notifier, defaults, logger)
	}, clients)
	return &AIService{
		registry:    registry,
		invocations: invocations,
		logger:      logger,
	}
}

// Invoke runs function for clientID through the client's wrapper and records the outcome.
func (s *AIService) Invoke(ctx context.Context, clientID, function string, payload json.RawMessage, opts ai.InvokeOptions) (json.RawMessage, error) {
	var attempts atomic.Int32
	callerHook := opts.OnAttempt
	opts.OnAttempt = func(attempt int) {
		attempts.Store(int32(attempt))
		if callerHook != nil {
			callerHook(attempt)
		}
	}

	start := time.Now()
	result, err := s.registry.Get(clientID).Invoke(ctx, function, payload, opts)

	record := &domain.Invocation{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		Function:   function,
		Status:     domain.InvocationSucceeded,
		Attempts:   int(attempts.Load()),
		DurationMs: time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
	case ai.IsBusy(err):
		record.Status = domain.InvocationRejected
		record.Error = ai.UserMessage(err)
	default:
		record.Status = domain.InvocationFailed
		record.Error = ai.UserMessage(err)
	}
	s.record(ctx, record)

	return result, err
}

func (s *AIService) record(ctx context.Context, record *domain.Invocation) {
	if s.invocations == nil {
		return
	}
	if err := s.invocations.Create(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Error("failed to record invocation", "id", record.ID, "error", err)
	}
}

// State returns the wrapper state for clientID; unknown clients are idle.
func (s *AIService) State(clientID string) ai.State {
	inv, ok := s.registry.Lookup(clientID)
	if !ok {
		return ai.State{}
	}
	return inv.State()
}

func (s *AIService) RecentInvocations(ctx context.Context, clientID string, limit int) ([]domain.Invocation, error) {
	return s.invocations.FindRecentByClient(ctx, clientID, limit)
}

// Close stops evicting idle clients.
func (s *AIService) Close() {
	s.registry.Close()
}
