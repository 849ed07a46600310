package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"receipt-e2e/configs"
	"receipt-e2e/logger"
	"receipt-e2e/tasks"
)

// Standalone task server: runs the out-of-browser tasks for runners on other hosts.
func main() {
	cfg, err := configs.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		logger.Fatal("invalid log level", zap.String("level", cfg.LogLevel), zap.Error(err))
	}

	reg := tasks.NewRegistry()
	if err := tasks.Setup(cfg, reg); err != nil {
		logger.Fatal("failed to register tasks", zap.Error(err))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      tasks.NewHandler(reg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.TaskTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting task server", zap.String("port", cfg.Port), zap.Strings("tasks", reg.Names()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
