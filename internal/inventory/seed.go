package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SeedSource provides the initial document for an empty factory.
type SeedSource interface {
	FetchSeed(ctx context.Context, factoryID string) (StateDocument, error)
}

// HTTPSeedSource fetches seed documents over HTTP. URLTemplate may contain
// "{factory}", replaced by the factory id.
type HTTPSeedSource struct {
	URLTemplate string
	Client      *http.Client
}

// NewHTTPSeedSource constructs HTTPSeedSource with a bounded client.
func NewHTTPSeedSource(urlTemplate string, timeout time.Duration) *HTTPSeedSource {
	if timeout <= 0 {
		timeout = DefaultSeedTimeout
	}
	return &HTTPSeedSource{
		URLTemplate: urlTemplate,
		Client:      &http.Client{Timeout: timeout},
	}
}

// FetchSeed downloads and decodes the seed for factoryID.
func (s *HTTPSeedSource) FetchSeed(ctx context.Context, factoryID string) (StateDocument, error) {
	url := strings.ReplaceAll(s.URLTemplate, "{factory}", factoryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StateDocument{}, err
	}
	req.Header.Set("Accept", "application/json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return StateDocument{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return StateDocument{}, fmt.Errorf("inventory: seed %s: unexpected status %d", url, resp.StatusCode)
	}
	var doc StateDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&doc); err != nil {
		return StateDocument{}, fmt.Errorf("inventory: decode seed: %w", err)
	}
	return doc, nil
}

var errSeedSkipped = errors.New("inventory: factory already populated")

// LoadSeedIfEmpty installs the seed when the factory has no items. Failures, a missing
// source, or a seed for another factory leave the state untouched. Concurrent callers
// for one factory share a single fetch.
func (r *Repository) LoadSeedIfEmpty(ctx context.Context, factoryID string) (StateDocument, error) {
	current, err := r.GetState(ctx, factoryID)
	if err != nil {
		return StateDocument{}, err
	}
	if len(current.Items) > 0 || r.seeds == nil {
		return current, nil
	}
	v, err, _ := r.seedGroup.Do(factoryID, func() (any, error) {
		return r.installSeed(ctx, factoryID)
	})
	if err != nil {
		return StateDocument{}, err
	}
	return v.(StateDocument).Clone(), nil
}

func (r *Repository) installSeed(ctx context.Context, factoryID string) (StateDocument, error) {
	current, err := r.GetState(ctx, factoryID)
	if err != nil || len(current.Items) > 0 {
		return current, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.seedTimeout)
	defer cancel()

	seed, err := r.seeds.FetchSeed(fetchCtx, factoryID)
	if err != nil {
		r.logger.Warn("seed unavailable",
			slog.String("factory_id", factoryID),
			slog.Any("error", err),
		)
		return r.GetState(ctx, factoryID)
	}
	if seed.FactoryID != factoryID {
		r.logger.Info("seed ignored: factory mismatch",
			slog.String("factory_id", factoryID),
			slog.String("seed_factory_id", seed.FactoryID),
		)
		return r.GetState(ctx, factoryID)
	}

	doc, err := r.Update(ctx, factoryID, func(current *StateDocument) error {
		if len(current.Items) > 0 {
			return errSeedSkipped
		}
		*current = seed.Clone()
		return nil
	})
	if errors.Is(err, errSeedSkipped) {
		return r.GetState(ctx, factoryID)
	}
	if err != nil {
		return StateDocument{}, err
	}
	r.logger.Info("seed installed",
		slog.String("factory_id", factoryID),
		slog.Int("items", len(doc.Items)),
	)
	return doc, nil
}
