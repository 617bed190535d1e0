package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AKAPP611/al-jameel-mes/internal/storage"
)

var testNow = time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepo(t *testing.T, store storage.Store) *Repository {
	t.Helper()
	repo := NewRepository(storage.NewAdapter(store, discardLogger(), nil), discardLogger(), RepositoryConfig{
		Clock: func() time.Time { return testNow },
	})
	t.Cleanup(repo.Close)
	return repo
}

// seedStock creates an item with a default-location record.
func seedStock(t *testing.T, repo *Repository, factoryID, sku string, qty float64) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.AddItem(ctx, factoryID, NewItem{SKU: sku, Name: sku, UnitCost: decimal.NewFromInt(2)})
	require.NoError(t, err)
	_, err = repo.UpdateInventory(ctx, factoryID, sku, InventoryUpdate{Qty: &qty})
	require.NoError(t, err)
}

type failingStore struct {
	*storage.MemoryStore
	mu         sync.Mutex
	failWrites bool
	failReads  int
}

func (s *failingStore) Read(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failReads > 0
	if fail {
		s.failReads--
	}
	s.mu.Unlock()
	if fail {
		return "", false, errors.New("connection reset")
	}
	return s.MemoryStore.Read(ctx, key)
}

func (s *failingStore) Write(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return s.MemoryStore.Write(ctx, key, value)
}

func (s *failingStore) setFail(v bool) {
	s.mu.Lock()
	s.failWrites = v
	s.mu.Unlock()
}

func (s *failingStore) failNextReads(n int) {
	s.mu.Lock()
	s.failReads = n
	s.mu.Unlock()
}

// gatedStore snapshots the value on an armed Read and then waits for release before
// returning it.
type gatedStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) arm() (entered, release chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entered = make(chan struct{})
	s.release = make(chan struct{})
	return s.entered, s.release
}

func (s *gatedStore) Read(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	entered, release := s.entered, s.release
	s.entered, s.release = nil, nil
	s.mu.Unlock()

	value, found, err := s.MemoryStore.Read(ctx, key)
	if entered != nil {
		close(entered)
		<-release
	}
	return value, found, err
}

func storedState(t *testing.T, store storage.Store, factoryID string) StateDocument {
	t.Helper()
	raw, found, err := store.Read(context.Background(), storage.StateKey(factoryID))
	require.NoError(t, err)
	require.True(t, found)
	var doc StateDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestGetStateEmptyIsNotPersisted(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := newTestRepo(t, store)
	ctx := context.Background()

	first, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	second, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)

	require.Equal(t, "pistachio", first.FactoryID)
	require.Empty(t, first.Items)
	require.NotNil(t, first.Inventory)
	require.Equal(t, first, second)
	require.Equal(t, 0, store.Len())
}

func TestGetStateRequiresFactory(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	_, err := repo.GetState(context.Background(), " ")
	require.ErrorIs(t, err, ErrFactoryRequired)
}

func TestStateSurvivesFreshRepository(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := newTestRepo(t, store)
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-18-21", 100)
	_, err := repo.RemoveStock(ctx, "pistachio", "PST-18-21", 10, "")
	require.NoError(t, err)

	before, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)

	reopened := newTestRepo(t, store)
	after, err := reopened.GetState(ctx, "pistachio")
	require.NoError(t, err)

	want, err := json.Marshal(before)
	require.NoError(t, err)
	got, err := json.Marshal(after)
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
}

func TestSetStateForcesFactoryAndStamps(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	stored, err := repo.SetState(context.Background(), "dates", StateDocument{
		FactoryID: "other",
		Items:     []Item{{ID: "1", SKU: "DT-1", Name: "Dates"}},
	})
	require.NoError(t, err)
	require.Equal(t, "dates", stored.FactoryID)
	require.Equal(t, testNow, stored.LastUpdated)
	require.False(t, stored.CreatedAt.IsZero())
	require.Len(t, stored.Items, 1)
}

func TestCorruptPayloadReadsAsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Write(context.Background(), storage.StateKey("pistachio"), "{not json"))
	repo := newTestRepo(t, store)

	doc, err := repo.GetState(context.Background(), "pistachio")
	require.NoError(t, err)
	require.Empty(t, doc.Items)
}

func TestCorruptPayloadAbortsUpdate(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, storage.StateKey("pistachio"), "{not json"))
	repo := newTestRepo(t, store)

	_, err := repo.AddItem(ctx, "pistachio", NewItem{SKU: "PST-3", Name: "Roasted"})
	require.ErrorIs(t, err, ErrCorruptState)

	raw, found, err := store.Read(ctx, storage.StateKey("pistachio"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "{not json", raw)
}

func TestReadFailureAbortsUpdate(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	ctx := context.Background()
	seedStock(t, newTestRepo(t, store), "pistachio", "PST-1", 4)
	seedStock(t, newTestRepo(t, store), "pistachio", "PST-2", 6)

	repo := newTestRepo(t, store)
	calls := 0
	repo.Subscribe("pistachio", func(StateDocument) { calls++ })
	store.failNextReads(1)
	_, err := repo.AddItem(ctx, "pistachio", NewItem{SKU: "PST-3", Name: "Roasted"})
	require.ErrorIs(t, err, storage.ErrReadFailed)
	require.Equal(t, 0, calls)

	stored := storedState(t, store, "pistachio")
	require.Len(t, stored.Items, 2)
	require.Len(t, stored.Inventory, 2)

	_, err = repo.AddItem(ctx, "pistachio", NewItem{SKU: "PST-3", Name: "Roasted"})
	require.NoError(t, err)
	require.Len(t, storedState(t, store, "pistachio").Items, 3)
}

func TestReadFailureServesEmptyState(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	seedStock(t, newTestRepo(t, store), "pistachio", "PST-1", 4)

	repo := newTestRepo(t, store)
	store.failNextReads(1)
	doc, err := repo.GetState(context.Background(), "pistachio")
	require.NoError(t, err)
	require.Empty(t, doc.Items)

	doc, err = repo.GetState(context.Background(), "pistachio")
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
}

func TestSlowReadDoesNotRevertCommit(t *testing.T) {
	store := &gatedStore{MemoryStore: storage.NewMemoryStore()}
	ctx := context.Background()
	seedStock(t, newTestRepo(t, store), "pistachio", "PST-1", 10)

	repo := newTestRepo(t, store)
	entered, release := store.arm()
	done := make(chan error, 1)
	go func() {
		_, err := repo.GetState(ctx, "pistachio")
		done <- err
	}()
	<-entered

	_, err := repo.AddStock(ctx, "pistachio", "PST-1", 5, "")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	_, err = repo.AddStock(ctx, "pistachio", "PST-1", 1, "")
	require.NoError(t, err)

	stored := storedState(t, store, "pistachio")
	require.Equal(t, 16.0, stored.Record("PST-1", "").Qty)
	require.Len(t, stored.Movements, 2)
	require.Equal(t, 5.0, stored.Movements[0].Quantity)
	require.Equal(t, 1.0, stored.Movements[1].Quantity)
}

func TestUpdateErrorPersistsNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := newTestRepo(t, store)
	calls := 0
	repo.Subscribe("pistachio", func(StateDocument) { calls++ })

	boom := errors.New("boom")
	_, err := repo.Update(context.Background(), "pistachio", func(doc *StateDocument) error {
		doc.Items = append(doc.Items, Item{SKU: "X"})
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, store.Len())
	require.Equal(t, 0, calls)
}

func TestWriteFailureKeepsPreviousState(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	repo := newTestRepo(t, store)
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 5)

	store.setFail(true)
	_, err := repo.AddStock(ctx, "pistachio", "PST-1", 5, "")
	require.ErrorIs(t, err, storage.ErrWriteFailed)

	doc, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	require.Equal(t, 5.0, doc.Record("PST-1", "").Qty)
	require.Len(t, doc.Movements, 0)
}

func TestClearFactoryRemovesAndNotifies(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := newTestRepo(t, store)
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 5)

	var got StateDocument
	repo.Subscribe("pistachio", func(doc StateDocument) { got = doc })
	require.NoError(t, repo.ClearFactory(ctx, "pistachio"))

	require.Equal(t, 0, store.Len())
	require.Equal(t, "pistachio", got.FactoryID)
	require.Empty(t, got.Items)

	doc, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	require.Empty(t, doc.Inventory)
}

func TestClosedRepositoryRejectsCalls(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	repo.Close()
	_, err := repo.GetState(context.Background(), "pistachio")
	require.ErrorIs(t, err, ErrClosed)
}

func TestGetStateReturnsIsolatedCopies(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 5)

	doc, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	doc.Inventory[0].Qty = 999
	doc.Items[0].Name = "mutated"

	again, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	require.Equal(t, 5.0, again.Inventory[0].Qty)
	require.Equal(t, "PST-1", again.Items[0].Name)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 0)

	const workers = 50
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddStock(ctx, "pistachio", "PST-1", 1, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	require.Equal(t, float64(workers), doc.Record("PST-1", "").Qty)
	require.Len(t, doc.Movements, workers)
}

func TestFactoriesAreIndependent(t *testing.T) {
	repo := newTestRepo(t, storage.NewMemoryStore())
	ctx := context.Background()
	seedStock(t, repo, "pistachio", "PST-1", 5)

	doc, err := repo.GetState(ctx, "dates")
	require.NoError(t, err)
	require.Empty(t, doc.Items)
}
