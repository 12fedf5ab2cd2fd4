package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pantrypilot/recipe-agent/internal/bootstrap"
	"github.com/pantrypilot/recipe-agent/internal/config"
	"github.com/pantrypilot/recipe-agent/internal/observability/logging"
	"github.com/pantrypilot/recipe-agent/internal/observability/metrics"
)

const serviceName = "recipe-agent-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSyncRequested(ctx, func(handlerCtx context.Context, passID string) error {
		syncCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		workerMetrics.StartSyncPass()
		started := time.Now()
		report, err := app.SyncUC.SyncByPassID(syncCtx, passID)
		workerMetrics.FinishSyncPass(serviceName, time.Since(started), err)
		if err != nil {
			return err
		}

		workerMetrics.RecordSyncReport(serviceName, report)
		logger.Info("sync_pass_done",
			"pass_id", report.PassID,
			"parsed", report.Parsed,
			"complete", report.Complete,
			"enriched", report.Enriched,
			"failed", report.Failed,
			"cache_hits", report.CacheHits,
			"provider_calls", report.ProviderCalls,
			"duration_ms", float64(report.Duration.Microseconds())/1000.0,
		)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
