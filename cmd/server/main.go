// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iyunix/go-subportal/internal/config"
	"github.com/iyunix/go-subportal/internal/repository"
	"github.com/iyunix/go-subportal/internal/services"
)

func main() {
	cfg := config.Load()
	logger := services.NewLogger("subportal")

	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	app, err := InitializeApplication(cfg, logger, db)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer app.Close()

	port := ":8080"
	if cfg.ServerPort != "" {
		port = ":" + cfg.ServerPort
	}
	srv := &http.Server{
		Addr:              port,
		Handler:           app.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting",
		"port", port,
		"ai_backend", cfg.AIBackend,
		"max_retries", cfg.AIMaxRetries,
		"base_delay_ms", cfg.AIBaseDelayMs,
		"timeout_ms", cfg.AITimeoutMs,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		if zl, ok := logger.(*services.ProductionLogger); ok {
			_ = zl.Sync()
		}
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
