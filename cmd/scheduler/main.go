package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/finlend/ledger-engine/internal/config"
	"github.com/finlend/ledger-engine/internal/notify"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/internal/service"
)

func main() {
	slog.Info("starting ledger scheduler")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repository.SetStorageTimeout(cfg.GetStorageTimeout())

	productRepo := repository.NewProductRepository(db)
	dueRepo := repository.NewDueRepository(db)
	assignRepo := repository.NewAssignmentRepository(db)
	sink := notify.NewLogSink(slog.Default())

	dueTracker := service.NewDueTrackerService(productRepo, dueRepo, assignRepo, sink)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		slog.Error("invalid scheduler timezone", "timezone", cfg.Scheduler.Timezone, "error", err)
		os.Exit(1)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Schedule tasks
	setupCronJobs(c, cfg, dueTracker)

	// Start the scheduler
	c.Start()
	slog.Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler")
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, dueTracker *service.DueTrackerService) {
	// Daily sweep flipping missed obligations to overdue
	_, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetSweepTimeout())
		defer cancel()

		flipped, err := dueTracker.MarkOverdue(ctx, time.Now())
		if err != nil {
			slog.Error("overdue sweep failed", "error", err)
			return
		}
		slog.Info("overdue sweep finished", "flipped", flipped)
	})
	if err != nil {
		slog.Error("scheduling overdue sweep", "error", err)
	}

	// Reminder job for obligations falling due soon
	_, err = c.AddFunc(cfg.Scheduler.DueSoonSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetSweepTimeout())
		defer cancel()

		notified, err := dueTracker.NotifyDueSoon(ctx, time.Now(), cfg.Scheduler.DueSoonDays)
		if err != nil {
			slog.Error("due soon notification failed", "error", err)
			return
		}
		slog.Info("due soon notifications sent", "count", notified)
	})
	if err != nil {
		slog.Error("scheduling due soon job", "error", err)
	}

	slog.Info("cron jobs scheduled")
}
