package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
	"github.com/AKAPP611/al-jameel-mes/internal/inventory/export"
	"github.com/AKAPP611/al-jameel-mes/internal/observability"
	"github.com/AKAPP611/al-jameel-mes/internal/platform/blob"
	"github.com/AKAPP611/al-jameel-mes/internal/platform/cache"
	"github.com/AKAPP611/al-jameel-mes/internal/storage"
)

// Services holds the long-lived components shared by the API server and the worker.
type Services struct {
	Repo     *inventory.Repository
	Archiver *export.Archiver

	store storage.ClosableStore
	redis *redis.Client
}

// NewServices opens the configured backend and builds the inventory repository.
// Archiver is nil when no report bucket is configured.
func NewServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	store, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	svc := &Services{store: store}

	var locker inventory.Locker = inventory.NewLocalLocker()
	if cfg.LockDriver == LockDriverRedis {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect lock redis: %w", err)
		}
		svc.redis = client
		locker = inventory.NewRedisLocker(client, cfg.LockTTL, logger)
	}

	var seeds inventory.SeedSource
	if cfg.SeedURLTemplate != "" {
		seeds = inventory.NewHTTPSeedSource(cfg.SeedURLTemplate, cfg.SeedTimeout)
	}

	svc.Repo = inventory.NewRepository(storage.NewAdapter(store, logger, metrics), logger, inventory.RepositoryConfig{
		Locker:       locker,
		Seeds:        seeds,
		SeedTimeout:  cfg.SeedTimeout,
		Metrics:      metrics,
		DisableCache: cfg.SharedState(),
	})

	if cfg.ReportBucket != "" {
		bucket, err := blob.New(ctx, blob.Config{
			Bucket:   cfg.ReportBucket,
			Region:   cfg.ReportRegion,
			Endpoint: cfg.ReportEndpoint,
		})
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("init report bucket: %w", err)
		}
		svc.Archiver = export.NewArchiver(bucket, cfg.ReportPrefix)
	}
	logger.Info("services ready",
		slog.String("storage", cfg.StorageDriver),
		slog.String("lock", cfg.LockDriver),
		slog.Bool("seeds", seeds != nil),
		slog.Bool("archive", svc.Archiver != nil),
	)
	return svc, nil
}

// Close releases the repository and backend connections.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	if s.Repo != nil {
		s.Repo.Close()
	}
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}
