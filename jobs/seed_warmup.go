package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/AKAPP611/al-jameel-mes/internal/jobs"
	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

// SeedWarmupJob loads seed documents for factories whose state is still empty.
type SeedWarmupJob struct {
	Repo      *inventory.Repository
	Factories []string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewSeedWarmupJob wires dependencies for the warmup handler.
func NewSeedWarmupJob(repo *inventory.Repository, factories []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *SeedWarmupJob {
	return &SeedWarmupJob{Repo: repo, Factories: factories, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSeedWarmup tasks. One failing factory does not stop the others;
// the combined error is returned so asynq retries the run.
func (j *SeedWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Repo == nil {
		return errors.New("seed warmup: handler not configured")
	}
	payload, err := decodeFactories(t, j.Factories)
	if err != nil {
		return err
	}
	tracker := pickMetrics(j.Metrics).Track(TaskSeedWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskSeedWarmup)
	var errs []error
	seeded := 0
	for _, factoryID := range payload.Factories {
		doc, err := j.Repo.LoadSeedIfEmpty(ctx, factoryID)
		if err != nil {
			logger.Error("seed factory", slog.String("factory_id", factoryID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		if len(doc.Items) > 0 {
			seeded++
		}
	}
	logger.Info("completed seed warmup", slog.Int("factories", len(payload.Factories)), slog.Int("populated", seeded))
	return errors.Join(errs...)
}
