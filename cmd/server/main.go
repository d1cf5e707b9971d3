package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/app"
	"github.com/nekogravitycat/futsal-booking-backend/internal/config"
	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/logger"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.IsProduction()})

	pool, err := db.NewPool(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		slog.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.ApplySchema {
		if err := db.ApplySchema(ctx, pool); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	container, err := app.NewContainer(cfg, pool)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if cfg.Reminder.Interval > 0 {
		go container.Reminders.Run(ctx, cfg.Reminder.Interval, container.Clock)
		slog.Info("in-process reminder sweep enabled", "interval", cfg.Reminder.Interval)
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server running", "addr", cfg.HTTP.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced to shutdown", "error", err)
	}
	// Handlers are done; flush notifications they queued.
	if err := container.Close(shutdownCtx); err != nil {
		slog.Warn("notification shutdown incomplete", "error", err)
	}

	slog.Info("server exited gracefully")
}
