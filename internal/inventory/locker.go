package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/AKAPP611/al-jameel-mes/internal/shared"
)

// ErrLockNotObtained indicates the factory lock could not be taken in time.
var ErrLockNotObtained = fmt.Errorf("inventory: factory busy: %w", shared.ErrConflict)

// Locker serialises mutations of one factory's document.
type Locker interface {
	Lock(ctx context.Context, factoryID string) (unlock func(), err error)
}

// LocalLocker serialises writers inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker constructs a LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

// Lock blocks until the factory slot is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, factoryID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[factoryID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[factoryID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RedisLocker serialises writers across processes sharing one Redis.
type RedisLocker struct {
	client *redislock.Client
	local  *LocalLocker
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker builds a distributed locker. ttl bounds how long a crashed holder can
// block others.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client: redislock.New(client),
		local:  NewLocalLocker(),
		ttl:    ttl,
		logger: logger,
	}
}

// Lock takes the in-process slot first, then the Redis lock.
func (l *RedisLocker) Lock(ctx context.Context, factoryID string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, factoryID)
	if err != nil {
		return nil, err
	}
	key := shared.InventoryLockKey(factoryID)
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if err != nil {
		unlockLocal()
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockNotObtained
		}
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("release factory lock", slog.String("key", key), slog.Any("error", err))
			}
			unlockLocal()
		})
	}, nil
}
