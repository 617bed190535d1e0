package storage

import (
	"context"
	"fmt"

	"github.com/AKAPP611/al-jameel-mes/internal/platform/cache"
	"github.com/AKAPP611/al-jameel-mes/internal/platform/db"
)

// Config selects and configures a backend.
type Config struct {
	Driver     string
	RedisAddr  string
	SQLitePath string
	PGDSN      string
}

// ClosableStore is a Store owning connections that must be released.
type ClosableStore interface {
	Store
	Close() error
}

// Open connects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (ClosableStore, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
