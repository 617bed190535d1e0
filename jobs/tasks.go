package jobs

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/AKAPP611/al-jameel-mes/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSeedWarmup installs seed data into factories that have no state yet.
	TaskSeedWarmup = "inventory:seed_warmup"
	// TaskLowStockScan reports inventory lines at or below their minimum.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskReportArchive uploads daily factory reports to object storage.
	TaskReportArchive = "inventory:report_archive"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// FactoriesPayload scopes a task to a set of factories. An empty list means every
// configured factory.
type FactoriesPayload struct {
	Factories    []string  `json:"factories,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for,omitempty"`
}

// NewSeedWarmupTask constructs a seed warmup task.
func NewSeedWarmupTask(factories ...string) (*asynq.Task, error) {
	return newFactoriesTask(TaskSeedWarmup, FactoriesPayload{Factories: factories})
}

// NewLowStockScanTask constructs a low-stock scan task.
func NewLowStockScanTask(factories ...string) (*asynq.Task, error) {
	return newFactoriesTask(TaskLowStockScan, FactoriesPayload{Factories: factories})
}

// NewReportArchiveTask constructs a report archive task.
func NewReportArchiveTask(at time.Time, factories ...string) (*asynq.Task, error) {
	return newFactoriesTask(TaskReportArchive, FactoriesPayload{Factories: factories, ScheduledFor: at})
}

func newFactoriesTask(kind string, payload FactoriesPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(kind, body, asynq.Queue(QueueDefault)), nil
}

// decodeFactories reads a FactoriesPayload, falling back to defaults when the task
// names no factory. A malformed payload is never retried.
func decodeFactories(t *asynq.Task, defaults []string) (FactoriesPayload, error) {
	var payload FactoriesPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return payload, asynq.SkipRetry
		}
	}
	if len(payload.Factories) == 0 {
		payload.Factories = append([]string(nil), defaults...)
	}
	return payload, nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

func pickMetrics(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
