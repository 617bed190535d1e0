package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/AKAPP611/al-jameel-mes/internal/jobs"
	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

// LowStockScanJob logs every inventory line at or below its minimum and publishes the
// per-factory count.
type LowStockScanJob struct {
	Repo      *inventory.Repository
	Factories []string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(repo *inventory.Repository, factories []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Repo: repo, Factories: factories, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeFactories(t, j.Factories)
	if err != nil {
		return err
	}
	_, err = j.Scan(ctx, payload.Factories)
	return err
}

// Scan returns the low-stock rows of every factory, most severe first per factory.
func (j *LowStockScanJob) Scan(ctx context.Context, factories []string) (rows []inventory.LowStockRow, resultErr error) {
	if j == nil || j.Repo == nil {
		return nil, errors.New("low stock scan: handler not configured")
	}
	metrics := pickMetrics(j.Metrics)
	tracker := metrics.Track(TaskLowStockScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskLowStockScan)
	for _, factoryID := range factories {
		doc, err := j.Repo.GetState(ctx, factoryID)
		if err != nil {
			return rows, err
		}
		low := inventory.LowStock(doc)
		metrics.SetLowStock(factoryID, len(low))
		for _, row := range low {
			logger.Warn("low stock",
				slog.String("factory_id", row.FactoryID),
				slog.String("sku", row.SKU),
				slog.String("location", row.Location),
				slog.Float64("qty", row.Qty),
				slog.Float64("min_stock", row.MinStock),
				slog.Float64("shortage", row.Shortage),
			)
		}
		rows = append(rows, low...)
	}
	logger.Info("completed low stock scan", slog.Int("factories", len(factories)), slog.Int("rows", len(rows)))
	return rows, nil
}
