// Package cache exposes the public API of the Indexed Analytics Cache
// (spec.md §1): component G, the facade composing the Warmer, Query
// Engine, Invalidator, and Stats Collector behind a single entry point
// so callers never construct those components directly.
package cache

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/invalidator"
	"github.com/insano70/bcos-sub009/internal/kvstore"
	"github.com/insano70/bcos-sub009/internal/logging"
	"github.com/insano70/bcos-sub009/internal/query"
	"github.com/insano70/bcos-sub009/internal/sourcedb"
	"github.com/insano70/bcos-sub009/internal/stats"
	"github.com/insano70/bcos-sub009/internal/warmer"
)

// Re-exported so callers depend only on this package.
type (
	Filter     = query.Filter
	Row        = query.Row
	WarmResult = warmer.WarmResult
	CacheStats = stats.CacheStats
	SourceType = stats.SourceType
)

const SourceTypeTabular = stats.SourceTypeTabular

// Cache is the composed public API (spec.md §4.G).
type Cache struct {
	store       *kvstore.Store
	warmer      *warmer.Warmer
	query       *query.Engine
	invalidator *invalidator.Invalidator
	stats       *stats.Collector
	validator   *validator.Validate
}

// New composes every component over a shared redis.UniversalClient, the
// one shared resource spec.md §5 allows, plus the external config/fetch
// collaborators it names as out of scope.
func New(client redis.UniversalClient, config sourcedb.ConfigProvider, fetcher sourcedb.Fetcher, cfg appconfig.Config, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop()
	}
	store := kvstore.New(client, logger, cfg.CompressionThreshold)
	return &Cache{
		store:       store,
		warmer:      warmer.New(store, config, fetcher, cfg, logger),
		query:       query.New(store, cfg, logger),
		invalidator: invalidator.New(store, cfg, logger),
		stats:       stats.New(store, cfg, logger),
		validator:   validator.New(),
	}
}

// Warm repopulates dataSourceID's cache slice from the source database.
func (c *Cache) Warm(ctx context.Context, dataSourceID int64) (WarmResult, error) {
	return c.warmer.Warm(ctx, dataSourceID)
}

// WarmWithProgress is Warm plus a single completion callback; see
// warmer.Warmer.WarmWithProgress.
func (c *Cache) WarmWithProgress(ctx context.Context, dataSourceID int64, progress warmer.ProgressFunc) (WarmResult, error) {
	return c.warmer.WarmWithProgress(ctx, dataSourceID, progress)
}

// Query evaluates f against the index sets and materializes matching rows.
func (c *Cache) Query(ctx context.Context, f Filter) ([]Row, error) {
	if err := c.validator.Struct(&f); err != nil {
		return nil, fmt.Errorf("cache: invalid filter: %w", err)
	}
	return c.query.Query(ctx, f)
}

// BatchQuery evaluates every filter in fs, which must share dataSourceId
// and frequency, concurrently and aggregates the results by measure.
func (c *Cache) BatchQuery(ctx context.Context, fs []Filter) (map[string][]Row, error) {
	for i := range fs {
		if err := c.validator.Struct(&fs[i]); err != nil {
			return nil, fmt.Errorf("cache: invalid filter at index %d: %w", i, err)
		}
	}
	return c.query.BatchQuery(ctx, fs)
}

// Invalidate deletes every key belonging to dataSourceID.
func (c *Cache) Invalidate(ctx context.Context, dataSourceID int64) error {
	return c.invalidator.Invalidate(ctx, dataSourceID)
}

// Stats reports cardinalities and estimated memory use for dataSourceID.
func (c *Cache) Stats(ctx context.Context, dataSourceID int64, sourceType SourceType) (CacheStats, error) {
	return c.stats.Stats(ctx, dataSourceID, sourceType)
}

// IsWarm is a fast-path probe: a single GET of the metadata key, avoiding
// Stats's sampling work (spec.md §4.G). true iff a non-empty metadata
// document is present.
func (c *Cache) IsWarm(ctx context.Context, dataSourceID int64) (bool, error) {
	var meta struct {
		LastWarmed string `json:"lastWarmed"`
	}
	if err := c.store.GetBlob(ctx, cachekey.MetadataKey(dataSourceID), &meta); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("cache: read metadata: %w", err)
	}
	return meta.LastWarmed != "", nil
}

// LastWarmed returns the timestamp of the most recent successful warm, or
// ("", false) if the data source has never been warmed.
func (c *Cache) LastWarmed(ctx context.Context, dataSourceID int64) (string, bool, error) {
	var meta struct {
		LastWarmed string `json:"lastWarmed"`
	}
	if err := c.store.GetBlob(ctx, cachekey.MetadataKey(dataSourceID), &meta); err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache: read last-warmed: %w", err)
	}
	return meta.LastWarmed, meta.LastWarmed != "", nil
}
