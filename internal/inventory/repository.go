package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/AKAPP611/al-jameel-mes/internal/storage"
)

// DefaultSeedTimeout bounds a single seed fetch.
const DefaultSeedTimeout = 10 * time.Second

// MetricsRecorder receives domain counters. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordMovement(factoryID string, kind MovementType)
	RecordOrderTransition(factoryID string, status OrderStatus)
}

type noopMetrics struct{}

func (noopMetrics) RecordMovement(string, MovementType)       {}
func (noopMetrics) RecordOrderTransition(string, OrderStatus) {}

// RepositoryConfig groups optional collaborators.
type RepositoryConfig struct {
	Locker      Locker
	Seeds       SeedSource
	SeedTimeout time.Duration
	Metrics     MetricsRecorder
	// DisableCache forces every read through storage. Set it when several processes
	// write the same documents.
	DisableCache bool
	Clock        func() time.Time
	IDGenerator  func() string
}

// Repository owns the per-factory state documents. Every mutation runs as a locked
// read-modify-write on one document, persists once, and then notifies subscribers.
type Repository struct {
	store       *storage.Adapter
	logger      *slog.Logger
	locker      Locker
	seeds       SeedSource
	seedTimeout time.Duration
	metrics     MetricsRecorder
	cacheOff    bool
	clock       func() time.Time
	newID       func() string
	validate    *validator.Validate
	seedGroup   singleflight.Group

	mu          sync.RWMutex
	cache       map[string]StateDocument
	generations map[string]uint64
	subscribers map[string][]subscriber
	dispatchers map[string]*dispatcher
	nextSubID   uint64
	closed      bool
}

// NewRepository constructs Repository.
func NewRepository(store *storage.Adapter, logger *slog.Logger, cfg RepositoryConfig) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Locker == nil {
		cfg.Locker = NewLocalLocker()
	}
	if cfg.SeedTimeout <= 0 {
		cfg.SeedTimeout = DefaultSeedTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	return &Repository{
		store:       store,
		logger:      logger,
		locker:      cfg.Locker,
		seeds:       cfg.Seeds,
		seedTimeout: cfg.SeedTimeout,
		metrics:     cfg.Metrics,
		cacheOff:    cfg.DisableCache,
		clock:       cfg.Clock,
		newID:       cfg.IDGenerator,
		validate:    validator.New(),
		cache:       make(map[string]StateDocument),
		generations: make(map[string]uint64),
		subscribers: make(map[string][]subscriber),
		dispatchers: make(map[string]*dispatcher),
	}
}

// Now returns the repository clock reading.
func (r *Repository) Now() time.Time {
	return r.clock()
}

// GenerateID returns a new unique identifier.
func (r *Repository) GenerateID() string {
	return r.newID()
}

// Metrics exposes the configured recorder; never nil.
func (r *Repository) Metrics() MetricsRecorder {
	return r.metrics
}

// Close drops the cache and all subscribers. Later calls fail with ErrClosed.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cache = make(map[string]StateDocument)
	r.subscribers = make(map[string][]subscriber)
}

// GetState returns the factory document, or an empty one when nothing is stored or
// storage cannot be read.
func (r *Repository) GetState(ctx context.Context, factoryID string) (StateDocument, error) {
	if err := r.check(factoryID); err != nil {
		return StateDocument{}, err
	}
	doc, err := r.load(ctx, factoryID)
	if err != nil {
		r.logger.Warn("serving empty state",
			slog.String("factory_id", factoryID),
			slog.Any("error", err),
		)
		return emptyState(factoryID, r.clock()), nil
	}
	return doc, nil
}

// SetState replaces the whole document.
func (r *Repository) SetState(ctx context.Context, factoryID string, doc StateDocument) (StateDocument, error) {
	replacement := doc.Clone()
	return r.Update(ctx, factoryID, func(current *StateDocument) error {
		if replacement.CreatedAt.IsZero() {
			replacement.CreatedAt = current.CreatedAt
		}
		*current = replacement
		return nil
	})
}

// Update applies fn to a private copy of the document under the factory lock. When fn
// returns nil the result is stamped, persisted once and broadcast; otherwise nothing
// changes. A document that cannot be read aborts the update.
func (r *Repository) Update(ctx context.Context, factoryID string, fn func(*StateDocument) error) (StateDocument, error) {
	if err := r.check(factoryID); err != nil {
		return StateDocument{}, err
	}
	unlock, err := r.locker.Lock(ctx, factoryID)
	if err != nil {
		return StateDocument{}, fmt.Errorf("inventory: lock %s: %w", factoryID, err)
	}
	doc, err := r.load(ctx, factoryID)
	if err != nil {
		unlock()
		return StateDocument{}, err
	}
	if err := fn(&doc); err != nil {
		unlock()
		return StateDocument{}, err
	}
	now := r.clock()
	doc.normalize(factoryID)
	doc.LastUpdated = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if err := r.persist(ctx, factoryID, doc); err != nil {
		unlock()
		return StateDocument{}, err
	}
	r.enqueue(factoryID, doc.Clone())
	unlock()
	r.drain(factoryID)
	return doc.Clone(), nil
}

// ClearFactory removes the stored document. Subscribers receive an empty document.
func (r *Repository) ClearFactory(ctx context.Context, factoryID string) error {
	if err := r.check(factoryID); err != nil {
		return err
	}
	unlock, err := r.locker.Lock(ctx, factoryID)
	if err != nil {
		return fmt.Errorf("inventory: lock %s: %w", factoryID, err)
	}
	if err := r.store.Remove(ctx, storage.StateKey(factoryID)); err != nil {
		unlock()
		return err
	}
	r.mu.Lock()
	delete(r.cache, factoryID)
	r.generations[factoryID]++
	r.mu.Unlock()
	r.enqueue(factoryID, emptyState(factoryID, r.clock()))
	unlock()

	r.logger.Info("factory state cleared", slog.String("factory_id", factoryID))
	r.drain(factoryID)
	return nil
}

func (r *Repository) check(factoryID string) error {
	if strings.TrimSpace(factoryID) == "" {
		return ErrFactoryRequired
	}
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return nil
}

// load returns a private copy of the current document. A cache miss fills the cache
// only when no commit for the factory landed while storage was being read.
func (r *Repository) load(ctx context.Context, factoryID string) (StateDocument, error) {
	var gen uint64
	if !r.cacheOff {
		r.mu.RLock()
		doc, ok := r.cache[factoryID]
		gen = r.generations[factoryID]
		r.mu.RUnlock()
		if ok {
			return doc.Clone(), nil
		}
	}

	raw, found, err := r.store.Read(ctx, storage.StateKey(factoryID))
	if err != nil {
		return StateDocument{}, err
	}
	if !found {
		return emptyState(factoryID, r.clock()), nil
	}
	var doc StateDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		r.logger.Warn("decode state document",
			slog.String("factory_id", factoryID),
			slog.Any("error", err),
		)
		return StateDocument{}, fmt.Errorf("%w: %s: %v", ErrCorruptState, factoryID, err)
	}
	doc.normalize(factoryID)
	if !r.cacheOff {
		r.mu.Lock()
		if _, cached := r.cache[factoryID]; !cached && r.generations[factoryID] == gen {
			r.cache[factoryID] = doc.Clone()
		}
		r.mu.Unlock()
	}
	return doc, nil
}

func (r *Repository) persist(ctx context.Context, factoryID string, doc StateDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("inventory: encode state: %w", err)
	}
	if err := r.store.Write(ctx, storage.StateKey(factoryID), string(payload)); err != nil {
		return err
	}
	r.mu.Lock()
	r.generations[factoryID]++
	if !r.cacheOff {
		r.cache[factoryID] = doc.Clone()
	}
	r.mu.Unlock()
	return nil
}
