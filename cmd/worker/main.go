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

	"github.com/hibiken/asynq"

	"github.com/AKAPP611/al-jameel-mes/internal/app"
	jobmetrics "github.com/AKAPP611/al-jameel-mes/internal/jobs"
	"github.com/AKAPP611/al-jameel-mes/internal/observability"
	"github.com/AKAPP611/al-jameel-mes/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.TestMode {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	if err := cfg.ValidateWorker(); err != nil {
		slog.Default().Error("worker config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(cfg)

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	services, err := app.NewServices(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", slog.Any("error", err))
		}
	}()

	seedJob := jobs.NewSeedWarmupJob(services.Repo, cfg.Factories, logger, jobMetrics)
	scanJob := jobs.NewLowStockScanJob(services.Repo, cfg.Factories, logger, jobMetrics)
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskSeedWarmup, Handler: seedJob.Handle},
		{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
	}

	scanTask, err := jobs.NewLowStockScanTask()
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	cron := []jobs.CronRegistration{
		{Spec: cfg.LowStockCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}

	if services.Archiver != nil {
		archiveJob := jobs.NewReportArchiveJob(services.Repo, services.Archiver, cfg.Factories, logger, jobMetrics)
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskReportArchive, Handler: archiveJob.Handle})
		archiveTask, err := jobs.NewReportArchiveTask(time.Time{})
		if err != nil {
			logger.Error("build archive task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReportArchiveCron, Task: archiveTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	} else {
		logger.Info("report bucket not configured, archive job disabled")
	}

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("worker redis", slog.Any("error", err))
		os.Exit(1)
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.SeedURLTemplate != "" {
		seedTask, err := jobs.NewSeedWarmupTask()
		if err == nil {
			err = seedJob.Handle(ctx, seedTask)
		}
		if err != nil {
			logger.Warn("startup seed warmup", slog.Any("error", err))
		}
	}

	if cfg.WorkerMetricsAddr != "" {
		go serveMetrics(cfg.WorkerMetricsAddr, metrics, logger)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveMetrics(addr string, metrics *observability.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("serving worker metrics", slog.String("addr", addr))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("worker metrics server", slog.Any("error", err))
	}
}
