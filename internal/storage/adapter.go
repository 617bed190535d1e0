package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// FailureRecorder counts degraded storage operations.
type FailureRecorder interface {
	RecordStorageFailure(op string)
}

// Adapter guards a Store: backend errors are logged, counted and wrapped in one of
// the Err*Failed sentinels.
type Adapter struct {
	store    Store
	logger   *slog.Logger
	failures FailureRecorder
}

// NewAdapter wraps store. logger and failures may be nil.
func NewAdapter(store Store, logger *slog.Logger, failures FailureRecorder) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, logger: logger, failures: failures}
}

// Read returns the stored value, found=false when the key is absent, or an error
// wrapping ErrReadFailed when the backend could not answer.
func (a *Adapter) Read(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	value, found, err := a.store.Read(ctx, key)
	if err != nil {
		a.fail("read", key, err)
		return "", false, fmt.Errorf("%w: %s: %v", ErrReadFailed, key, err)
	}
	return value, found, nil
}

// Write stores value under key.
func (a *Adapter) Write(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := a.store.Write(ctx, key, value); err != nil {
		a.fail("write", key, err)
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key succeeds.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := a.store.Remove(ctx, key); err != nil {
		a.fail("remove", key, err)
		return fmt.Errorf("%w: %s: %v", ErrRemoveFailed, key, err)
	}
	return nil
}

func (a *Adapter) fail(op, key string, err error) {
	a.logger.Warn("storage operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err),
	)
	if a.failures != nil {
		a.failures.RecordStorageFailure(op)
	}
}
