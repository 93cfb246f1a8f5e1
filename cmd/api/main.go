package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/wolfman30/clinic-scheduling-platform/cmd/mainconfig"
	"github.com/wolfman30/clinic-scheduling-platform/internal/api/router"
	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/audit"
	appconfig "github.com/wolfman30/clinic-scheduling-platform/internal/config"
	"github.com/wolfman30/clinic-scheduling-platform/internal/directory"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/internal/reminders"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-scheduling-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}

	// Separate database/sql handle for the audit trail.
	auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit db handle", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()
	auditor := audit.NewService(auditDB)

	registry := prometheus.NewRegistry()
	schedulingMetrics := metrics.NewSchedulingMetrics(registry)
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	lookup := directory.NewPostgresLookup(pool)
	reminderStore := reminders.NewStore(pool)
	planner := reminders.NewPlanner(reminderStore, auditor, logger).
		WithMaxRetries(cfg.ReminderMaxRetries)

	apptStore := appointments.NewStore(pool)
	apptService := appointments.NewService(apptStore, lookup, planner, auditor, schedulingMetrics, logger)

	sender := mainconfig.BuildNotifySender(ctx, cfg, logger)
	dispatcher := reminders.NewDispatcher(reminderStore, apptStore, lookup, sender, logger).
		WithRetryDelay(cfg.ReminderRetryDelay).
		WithSendTimeout(cfg.SendTimeout).
		WithClaimLease(cfg.DispatchClaimLease).
		WithBatchSize(cfg.DispatchBatchSize).
		WithAuditor(auditor).
		WithMetrics(dispatchMetrics)

	if client := mainconfig.ConnectRedis(cfg, logger); client != nil {
		defer client.Close()
		dispatcher.WithCycleLock(reminders.NewCycleLock(client, cfg.DispatchClaimLease, logger))
	}

	routerCfg := &router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		RemindersHandler:    reminders.NewHandler(planner, reminderStore, dispatcher, apptStore, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// In-process dispatch schedule. Deployments running the dedicated
	// dispatch-worker binary set DISPATCH_ENABLED=false here.
	var scheduler *cron.Cron
	if cfg.DispatchEnabled {
		scheduler = cron.New()
		_, err := scheduler.AddFunc("@every "+cfg.DispatchInterval.String(), func() {
			if _, err := dispatcher.ProcessDue(ctx, nil); err != nil {
				logger.Error("scheduled dispatch cycle failed", "error", err)
			}
		})
		if err != nil {
			logger.Error("failed to schedule dispatch cycle", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("reminder dispatch scheduled", "interval", cfg.DispatchInterval)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
