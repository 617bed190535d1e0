package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AKAPP611/al-jameel-mes/internal/storage"
)

func TestSubscribeReceivesEveryCommit(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()

	var seen []int
	repo.Subscribe("pistachio", func(doc StateDocument) { seen = append(seen, len(doc.Items)) })
	seedStock(t, repo, "pistachio", "PST-1", 1)
	_, err := repo.AddStock(ctx, "pistachio", "PST-1", 1, "")
	require.NoError(t, err)

	require.Equal(t, []int{1, 1, 1}, seen)
}

func TestSubscriberPanicDoesNotStopOthers(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	calls := 0
	repo.Subscribe("pistachio", func(StateDocument) { panic("view exploded") })
	repo.Subscribe("pistachio", func(StateDocument) { calls++ })

	seedStock(t, repo, "pistachio", "PST-1", 1)
	require.Equal(t, 2, calls)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	calls := 0
	unsubscribe := repo.Subscribe("pistachio", func(StateDocument) { calls++ })
	unsubscribe()
	unsubscribe()

	seedStock(t, repo, "pistachio", "PST-1", 1)
	require.Equal(t, 0, calls)
}

func TestSubscriberMayReenterRepository(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()
	var observed float64
	repo.Subscribe("pistachio", func(StateDocument) {
		doc, err := repo.GetState(ctx, "pistachio")
		if err == nil {
			if rec := doc.Record("PST-1", ""); rec != nil {
				observed = rec.Qty
			}
		}
	})

	seedStock(t, repo, "pistachio", "PST-1", 7)
	require.Equal(t, 7.0, observed)
}

func TestSubscribersAreScopedByFactory(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	calls := 0
	repo.Subscribe("dates", func(StateDocument) { calls++ })

	seedStock(t, repo, "pistachio", "PST-1", 1)
	require.Equal(t, 0, calls)
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	var order []int
	for i := 0; i < 8; i++ {
		repo.Subscribe("pistachio", func(StateDocument) { order = append(order, i) })
	}

	_, err := repo.SetState(context.Background(), "pistachio", StateDocument{})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
}

func TestUnsubscribeKeepsRemainingOrder(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	var order []string
	repo.Subscribe("pistachio", func(StateDocument) { order = append(order, "a") })
	unsubscribe := repo.Subscribe("pistachio", func(StateDocument) { order = append(order, "b") })
	repo.Subscribe("pistachio", func(StateDocument) { order = append(order, "c") })
	unsubscribe()
	repo.Subscribe("pistachio", func(StateDocument) { order = append(order, "d") })

	_, err := repo.SetState(context.Background(), "pistachio", StateDocument{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c", "d"}, order)
}

func TestConcurrentCommitsAreDeliveredInCommitOrder(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 0)

	var mu sync.Mutex
	var seen []float64
	repo.Subscribe("pistachio", func(doc StateDocument) {
		mu.Lock()
		seen = append(seen, doc.Record("PST-1", "").Qty)
		mu.Unlock()
	})

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AddStock(ctx, "pistachio", "PST-1", 1, ""); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, workers)
	for i, qty := range seen {
		require.Equal(t, float64(i+1), qty)
	}
}

func TestSubscriberMutationIsDeliveredAfterCurrentCommit(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 10)

	var seen []float64
	repo.Subscribe("pistachio", func(doc StateDocument) {
		qty := doc.Record("PST-1", "").Qty
		seen = append(seen, qty)
		if qty == 11 {
			_, err := repo.AddStock(ctx, "pistachio", "PST-1", 1, "")
			require.NoError(t, err)
		}
	})

	_, err := repo.AddStock(ctx, "pistachio", "PST-1", 1, "")
	require.NoError(t, err)
	require.Equal(t, []float64{11, 12}, seen)
}
