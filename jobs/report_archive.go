package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/AKAPP611/al-jameel-mes/internal/jobs"
	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
	"github.com/AKAPP611/al-jameel-mes/internal/inventory/export"
)

// ReportArchiveJob uploads the JSON and XLSX report of every factory.
type ReportArchiveJob struct {
	Repo      *inventory.Repository
	Archiver  *export.Archiver
	Factories []string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewReportArchiveJob wires dependencies for the archive handler.
func NewReportArchiveJob(repo *inventory.Repository, archiver *export.Archiver, factories []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportArchiveJob {
	return &ReportArchiveJob{Repo: repo, Archiver: archiver, Factories: factories, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReportArchive tasks.
func (j *ReportArchiveJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Repo == nil || j.Archiver == nil {
		return errors.New("report archive: handler not configured")
	}
	payload, err := decodeFactories(t, j.Factories)
	if err != nil {
		return err
	}
	metrics := pickMetrics(j.Metrics)
	tracker := metrics.Track(TaskReportArchive)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskReportArchive)
	start := time.Now()
	uploaded := 0
	for _, factoryID := range payload.Factories {
		// Bound each upload independently.
		factoryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		keys, err := j.archive(factoryCtx, factoryID)
		cancel()
		if err != nil {
			logger.Error("archive factory report", slog.String("factory_id", factoryID), slog.Any("error", err))
			return err
		}
		metrics.AddArchived(factoryID, len(keys))
		uploaded += len(keys)
	}
	logger.Info("completed report archive", slog.Int("objects", uploaded), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportArchiveJob) archive(ctx context.Context, factoryID string) ([]string, error) {
	report, err := j.Repo.Report(ctx, factoryID)
	if err != nil {
		return nil, err
	}
	return j.Archiver.Archive(ctx, report)
}
