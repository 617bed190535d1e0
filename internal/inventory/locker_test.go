package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/AKAPP611/al-jameel-mes/internal/storage"
)

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "pistachio")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "pistachio")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(context.Background(), "dates")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	again, err := locker.Lock(context.Background(), "pistachio")
	require.NoError(t, err)
	again()
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestRedisLockerExcludesOtherProcesses(t *testing.T) {
	srv, client := newMiniredisClient(t)
	first := NewRedisLocker(client, time.Minute, discardLogger())
	second := NewRedisLocker(client, time.Minute, discardLogger())

	unlock, err := first.Lock(context.Background(), "pistachio")
	require.NoError(t, err)
	require.True(t, srv.Exists("lock:inv:pistachio"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx, "pistachio")
	require.Error(t, err)

	unlock()
	require.False(t, srv.Exists("lock:inv:pistachio"))

	unlock2, err := second.Lock(context.Background(), "pistachio")
	require.NoError(t, err)
	unlock2()
}

func TestRepositoryWithRedisStorageAndLock(t *testing.T) {
	_, client := newMiniredisClient(t)
	store := storage.NewRedisStore(client)
	locker := NewRedisLocker(client, time.Minute, discardLogger())

	writer := NewRepository(storage.NewAdapter(store, discardLogger(), nil), discardLogger(), RepositoryConfig{
		Locker:       locker,
		DisableCache: true,
	})
	reader := NewRepository(storage.NewAdapter(store, discardLogger(), nil), discardLogger(), RepositoryConfig{
		Locker:       NewRedisLocker(client, time.Minute, discardLogger()),
		DisableCache: true,
	})
	t.Cleanup(writer.Close)
	t.Cleanup(reader.Close)

	seedStock(t, writer, "pistachio", "PST-1", 10)
	_, err := reader.RemoveStock(context.Background(), "pistachio", "PST-1", 4, "")
	require.NoError(t, err)

	doc, err := writer.GetState(context.Background(), "pistachio")
	require.NoError(t, err)
	require.Equal(t, 6.0, doc.Record("PST-1", "").Qty)
	require.Len(t, doc.Movements, 1)
}
