// Command reminder runs one reminder sweep and exits. Schedule it every minute.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/app"
	"github.com/nekogravitycat/futsal-booking-backend/internal/config"
	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/logger"
	"github.com/nekogravitycat/futsal-booking-backend/internal/reminder"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.IsProduction()})

	pool, err := db.NewPool(ctx, cfg.DB.DSN, 2)
	if err != nil {
		slog.Error("failed to connect to db", "error", err)
		return 1
	}
	defer pool.Close()

	sender, closers, err := app.NewSender(cfg.Notify)
	if err != nil {
		slog.Error("failed to set up notifications", "error", err)
		return 1
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	scheduler := app.NewReminderScheduler(cfg, pool, sender)
	report, err := scheduler.RunReminderSweep(ctx, time.Now())
	if errors.Is(err, reminder.ErrSweepInProgress) {
		slog.Info("another reminder sweep is running; skipping")
		return 0
	}
	if err != nil {
		slog.Error("reminder sweep failed", "error", err)
		return 1
	}

	slog.Info("reminder sweep finished",
		"candidates", report.Candidates,
		"sent_30", report.Sent[30],
		"sent_10", report.Sent[10],
		"failed", report.Failed,
		"unmarked", report.Unmarked)
	return 0
}
