// Package storage persists per-factory state documents in a durable key/value store.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// SchemaVersion is embedded in every key; bump it when the document schema changes.
const SchemaVersion = "v1"

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrUnknownDriver indicates an unsupported storage driver name.
	ErrUnknownDriver = errors.New("storage: unknown driver")
	// ErrReadFailed wraps backend failures while reading a value.
	ErrReadFailed = errors.New("storage: read failed")
	// ErrWriteFailed wraps backend failures while writing a value.
	ErrWriteFailed = errors.New("storage: write failed")
	// ErrRemoveFailed wraps backend failures while removing a value.
	ErrRemoveFailed = errors.New("storage: remove failed")
	// ErrEmptyKey is returned for blank keys.
	ErrEmptyKey = errors.New("storage: key required")
)

// Store is the minimal key/value contract every backend implements.
// Read reports found=false for an absent key without an error.
type Store interface {
	Read(ctx context.Context, key string) (value string, found bool, err error)
	Write(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// StateKey builds the namespaced key holding a factory's state document.
func StateKey(factoryID string) string {
	return fmt.Sprintf("inv:%s:%s", factoryID, SchemaVersion)
}

