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

	"github.com/kirillkom/campus-notice-assistant/internal/bootstrap"
	"github.com/kirillkom/campus-notice-assistant/internal/config"
	"github.com/kirillkom/campus-notice-assistant/internal/observability/logging"
	"github.com/kirillkom/campus-notice-assistant/internal/observability/metrics"
)

const indexTimeout = 2 * time.Minute

func main() {
	cfg := config.Load()
	service := cfg.ServiceName + "-worker"
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeNoticeStored(ctx, func(handlerCtx context.Context, noticeID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, indexTimeout)
		defer cancel()

		start := time.Now()
		workerMetrics.StartNotice()
		err := app.IndexUC.IndexByID(indexCtx, noticeID)
		workerMetrics.FinishNotice(service, time.Since(start), err)
		if err != nil {
			return err
		}
		logger.Info("notice_indexed", "notice_id", noticeID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
