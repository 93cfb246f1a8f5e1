package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/clinic-scheduling-platform/cmd/mainconfig"
	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/audit"
	"github.com/wolfman30/clinic-scheduling-platform/internal/config"
	"github.com/wolfman30/clinic-scheduling-platform/internal/directory"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/internal/reminders"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Standalone reminder dispatcher. Deployments running this binary disable the
// in-process schedule in the API server with DISPATCH_ENABLED=false.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("dispatch worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit db handle", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	sender := mainconfig.BuildNotifySender(ctx, cfg, logger)
	dispatcher := reminders.NewDispatcher(
		reminders.NewStore(pool),
		appointments.NewStore(pool),
		directory.NewPostgresLookup(pool),
		sender,
		logger,
	).
		WithRetryDelay(cfg.ReminderRetryDelay).
		WithSendTimeout(cfg.SendTimeout).
		WithClaimLease(cfg.DispatchClaimLease).
		WithInterval(cfg.DispatchInterval).
		WithBatchSize(cfg.DispatchBatchSize).
		WithAuditor(audit.NewService(auditDB)).
		WithMetrics(metrics.NewDispatchMetrics(nil))

	if client := mainconfig.ConnectRedis(cfg, logger); client != nil {
		defer client.Close()
		dispatcher.WithCycleLock(reminders.NewCycleLock(client, cfg.DispatchClaimLease, logger))
	}

	go dispatcher.Run(ctx)
	logger.Info("dispatch worker running", "interval", cfg.DispatchInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("dispatch worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
