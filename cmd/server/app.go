// File: cmd/server/app.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/iyunix/go-subportal/internal/config"
	"github.com/iyunix/go-subportal/internal/handlers"
	"github.com/iyunix/go-subportal/internal/middleware"
	"github.com/iyunix/go-subportal/internal/ratelimit"
	"github.com/iyunix/go-subportal/internal/repository"
	"github.com/iyunix/go-subportal/internal/services"
	"github.com/iyunix/go-subportal/internal/services/ai"
)

// Application aggregates all services and handlers
type Application struct {
	Config              *config.Config
	Logger              services.Logger
	AIService           *services.AIService
	NotificationService *services.NotificationService
	AIHandler           *handlers.AIHandler
	NotificationHandler *handlers.NotificationHandler
	LogHandler          *handlers.LogHandler
	RateLimiter         *ratelimit.MemoryRateLimiter
	IPRateLimiter       *ratelimit.MemoryRateLimiter
}

// Provider functions

func ProvideRateLimitConfig(cfg *config.Config) *ratelimit.Config {
	rlConfig := ratelimit.DefaultAIConfig()
	if cfg.RateLimitPerMinute > 0 {
		rlConfig.PerMinute = cfg.RateLimitPerMinute
	}
	if cfg.RateLimitBurst > 0 {
		rlConfig.Burst = cfg.RateLimitBurst
	}
	return rlConfig
}

func ProvideIPRateLimitConfig(cfg *config.Config) *ratelimit.Config {
	rlConfig := ProvideRateLimitConfig(cfg)
	multiplier := cfg.RateLimitIPMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	rlConfig.PerMinute *= multiplier
	rlConfig.Burst *= multiplier
	return rlConfig
}

func ProvideRegistryConfig(cfg *config.Config) *ai.RegistryConfig {
	registryConfig := ai.DefaultRegistryConfig()
	if cfg.AIClientIdleMinutes > 0 {
		registryConfig.IdleTTL = time.Duration(cfg.AIClientIdleMinutes) * time.Minute
	}
	return registryConfig
}

// ProvideBackendClient returns the HTTP client for backend calls. It carries no Timeout: each attempt
// is bounded by the caller's resolved timeoutMs through the request context.
func ProvideBackendClient() *http.Client {
	return &http.Client{}
}

func ProvideFunctionInvoker(aiConfig *ai.Config) (ai.FunctionInvoker, error) {
	return ai.NewFunctionInvoker(aiConfig, ProvideBackendClient())
}

// InitializeApplication wires repositories, services and handlers on top of db.
func InitializeApplication(cfg *config.Config, logger services.Logger, db *gorm.DB) (*Application, error) {
	aiConfig, err := cfg.AIConfig()
	if err != nil {
		return nil, err
	}
	remote, err := ProvideFunctionInvoker(aiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI backend: %w", err)
	}

	notificationService := services.NewNotificationService(repository.NewNotificationRepository(db), logger)
	aiService := services.NewAIService(
		remote,
		ai.NewController(logger),
		notificationService,
		aiConfig.DefaultOptions(),
		ProvideRegistryConfig(cfg),
		repository.NewInvocationRepository(db),
		logger,
	)

	return &Application{
		Config:              cfg,
		Logger:              logger,
		AIService:           aiService,
		NotificationService: notificationService,
		AIHandler:           handlers.NewAIHandler(aiService, logger),
		NotificationHandler: handlers.NewNotificationHandler(notificationService, logger),
		LogHandler:          handlers.NewLogHandler(logger),
		RateLimiter:         ratelimit.NewMemoryRateLimiter(ProvideRateLimitConfig(cfg)),
		IPRateLimiter:       ratelimit.NewMemoryRateLimiter(ProvideIPRateLimitConfig(cfg)),
	}, nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+middleware.ClientIDHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter mounts the public API. CORS sits outside mux so preflight requests never reach routing.
func (app *Application) NewRouter() http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.RecoverPanic(app.Logger))
	r.Use(middleware.ClientIdentity)
	r.Use(middleware.LoggingMiddleware(app.Logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	r.HandleFunc("/api/log", app.LogHandler.LogFrontendEvent).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/notifications", app.NotificationHandler.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id:[0-9]+}/read", app.NotificationHandler.MarkRead).Methods("POST")

	aiRoutes := api.PathPrefix("/ai").Subrouter()
	aiRoutes.HandleFunc("/state", app.AIHandler.GetState).Methods("GET")
	aiRoutes.HandleFunc("/invocations", app.AIHandler.GetInvocations).Methods("GET")

	invokeRoutes := aiRoutes.PathPrefix("/functions").Subrouter()
	invokeRoutes.Use(middleware.IPRateLimitMiddleware(app.IPRateLimiter, app.Logger))
	invokeRoutes.Use(middleware.RateLimitMiddleware(app.RateLimiter, app.Logger))
	invokeRoutes.HandleFunc("/{name}/invoke", app.AIHandler.InvokeFunction).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return corsMiddleware(r)
}

// Close releases background resources owned by the application.
func (app *Application) Close() {
	app.RateLimiter.Close()
	app.IPRateLimiter.Close()
	app.AIService.Close()
}
