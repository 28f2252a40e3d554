package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicbook/scheduler/internal/appointments"
	appconfig "github.com/clinicbook/scheduler/internal/config"
	"github.com/clinicbook/scheduler/internal/events"
	"github.com/clinicbook/scheduler/internal/notify"
	"github.com/clinicbook/scheduler/internal/observability/metrics"
	"github.com/clinicbook/scheduler/pkg/logging"
)

// The scheduler worker drains the notification outbox into the SMS
// transport and serves Prometheus metrics. Booking itself is a library
// concern; embedding applications compose the services directly.
func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduler worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("scheduler worker requires DATABASE_URL")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database not reachable", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	sender := notify.NewSender(notify.Config{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		Timeout:    cfg.SMSTimeout,
	}, logger.Component("notify"))

	apptStore := appointments.NewPostgresStore(pool)
	outbox := events.NewOutbox(pool, logger.Component("events"))
	deliverer := events.NewDeliverer(outbox, sender, apptStore, logger.Component("events")).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxInterval).
		WithSendTimeout(cfg.SMSTimeout).
		WithMetrics(bookingMetrics)
	go deliverer.Start(ctx)

	metricsSrv := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("scheduler worker shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server forced to shutdown", "error", err)
	}
}
