package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-subportal/internal/config"
	"github.com/iyunix/go-subportal/internal/domain"
	"github.com/iyunix/go-subportal/internal/middleware"
	"github.com/iyunix/go-subportal/internal/repository"
	"github.com/iyunix/go-subportal/internal/services"
)

func newTestApp(t *testing.T, backend http.Handler) http.Handler {
	t.Helper()
	return newTestAppWithConfig(t, backend, nil)
}

func newTestAppWithConfig(t *testing.T, backend http.Handler, configure func(*config.Config)) http.Handler {
	t.Helper()
	edge := httptest.NewServer(backend)
	t.Cleanup(edge.Close)

	db, err := repository.Open(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		AIBackend:          "edge",
		BackendURL:         edge.URL,
		BackendAnonKey:     "anon",
		AIMaxRetries:       3,
		AIBaseDelayMs:      1,
		AITimeoutMs:        2000,
		RateLimitPerMinute: 600,
		RateLimitBurst:     20,
	}
	if configure != nil {
		configure(cfg)
	}
	app, err := InitializeApplication(cfg, &services.NoOpLogger{}, db)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app.NewRouter()
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(middleware.ClientIDHeader, "secretaria")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestApplication_InvokeRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	router := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/draft-demand-response", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"temporarily unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"content":"Prezado cidadão"}`))
	}))

	w := do(router, http.MethodPost, "/api/ai/functions/draft-demand-response/invoke", `{"payload":{"titulo":"Buraco na rua"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"result":{"content":"Prezado cidadão"},"error":null}`, w.Body.String())
	assert.Equal(t, int32(3), calls.Load())

	w = do(router, http.MethodGet, "/api/ai/invocations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var invocations []domain.Invocation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invocations))
	require.Len(t, invocations, 1)
	assert.Equal(t, domain.InvocationSucceeded, invocations[0].Status)
	assert.Equal(t, 3, invocations[0].Attempts)

	w = do(router, http.MethodGet, "/api/ai/state", "")
	assert.JSONEq(t, `{"isLoading":false,"error":null}`, w.Body.String())
}

func TestApplication_TerminalFailureCreatesNotification(t *testing.T) {
	router := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	}))

	w := do(router, http.MethodPost, "/api/ai/functions/summarize-esic-request/invoke", `{"payload":{"texto":"x"},"options":{"maxRetries":1}}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"result":null,"error":"model overloaded"}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/ai/state", "")
	assert.JSONEq(t, `{"isLoading":false,"error":"model overloaded"}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/notifications?unread=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var notifications []domain.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifications))
	require.Len(t, notifications, 1)
	assert.Equal(t, "model overloaded", notifications[0].Message)
}

func TestApplication_InvalidOptionsRejected(t *testing.T) {
	var calls atomic.Int32
	router := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	w := do(router, http.MethodPost, "/api/ai/functions/f/invoke", `{"payload":{},"options":{"maxRetries":0}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, calls.Load())
}

func TestApplication_HealthAndPreflight(t *testing.T) {
	router := newTestApp(t, http.NotFoundHandler())

	w := do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = do(router, http.MethodOptions, "/api/ai/functions/f/invoke", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.ClientIDHeader)
}

func slowBackend(delay time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
			_, _ = w.Write([]byte(`{"content":"late but fine"}`))
		case <-r.Context().Done():
		}
	})
}

func TestApplication_CallerTimeoutAboveConfiguredDefault(t *testing.T) {
	router := newTestAppWithConfig(t, slowBackend(300*time.Millisecond), func(cfg *config.Config) {
		cfg.AITimeoutMs = 100
	})

	w := do(router, http.MethodPost, "/api/ai/functions/f/invoke", `{"payload":{},"options":{"timeoutMs":3000,"maxRetries":1}}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"result":{"content":"late but fine"},"error":null}`, w.Body.String())
}

func TestApplication_CallerTimeoutReportedAsTimeout(t *testing.T) {
	router := newTestAppWithConfig(t, slowBackend(2*time.Second), func(cfg *config.Config) {
		cfg.AITimeoutMs = 5000
	})

	start := time.Now()
	w := do(router, http.MethodPost, "/api/ai/functions/f/invoke", `{"payload":{},"options":{"timeoutMs":50,"maxRetries":1}}`)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"result":null,"error":"request timed out after 50ms"}`, w.Body.String())
}

func TestProvideBackendClient_NoFixedTimeout(t *testing.T) {
	assert.Zero(t, ProvideBackendClient().Timeout)
}

func TestProviders_RateLimitAndRegistryConfig(t *testing.T) {
	cfg := &config.Config{RateLimitPerMinute: 30, RateLimitBurst: 5, RateLimitIPMultiplier: 4, AIClientIdleMinutes: 10}

	ip := ProvideIPRateLimitConfig(cfg)
	assert.Equal(t, 120, ip.PerMinute)
	assert.Equal(t, 20, ip.Burst)
	assert.Equal(t, 30, ProvideRateLimitConfig(cfg).PerMinute)

	assert.Equal(t, 10*time.Minute, ProvideRegistryConfig(cfg).IdleTTL)
}

func TestApplication_OversizedRetriesRejected(t *testing.T) {
	var calls atomic.Int32
	router := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	w := do(router, http.MethodPost, "/api/ai/functions/f/invoke", `{"payload":{},"options":{"maxRetries":1000000000,"baseDelayMs":0}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"result":null,"error":"maxRetries cannot exceed 10"}`, w.Body.String())
	assert.Zero(t, calls.Load())
}
