// Package stats implements the Stats Collector component of spec.md §4.F.
package stats

import (
	"context"
	"fmt"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/kvstore"
	"github.com/insano70/bcos-sub009/internal/logging"
)

// SourceType selects the Stats probing strategy. The zero value probes the
// normal tuple-indexed generation (Path A/B); SourceTypeTabular takes Path C,
// which probes the data source's metadata key as its single key.
type SourceType string

const (
	SourceTypeDefault SourceType = ""
	SourceTypeTabular SourceType = "tabular"
)

// CacheStats is the public result of Stats.
type CacheStats struct {
	DataSourceID      int64
	TotalEntries      int
	IndexCount        int
	EstimatedMemoryMB float64
	LastWarmed        string
	IsWarm            bool
	UniqueMeasures    int
	UniquePractices   int
	UniqueProviders   int
	UniqueFrequencies []string
}

// metadataDoc mirrors warmer.Metadata's JSON shape without importing the
// warmer package, keeping stats a leaf dependency.
type metadataDoc struct {
	LastWarmed        string   `json:"lastWarmed"`
	TotalEntries      int      `json:"totalEntries"`
	UniqueMeasures    int      `json:"uniqueMeasures"`
	UniquePractices   int      `json:"uniquePractices"`
	UniqueProviders   int      `json:"uniqueProviders"`
	UniqueFrequencies []string `json:"uniqueFrequencies"`
}

// Collector computes CacheStats for a data source.
type Collector struct {
	store  *kvstore.Store
	cfg    appconfig.Config
	logger logging.Logger
}

// New builds a Collector. logger may be nil.
func New(store *kvstore.Store, cfg appconfig.Config, logger logging.Logger) *Collector {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Collector{store: store, cfg: cfg, logger: logger}
}

// Stats implements spec.md §4.F's three paths.
func (c *Collector) Stats(ctx context.Context, dataSourceID int64, sourceType SourceType) (CacheStats, error) {
	if sourceType == SourceTypeTabular {
		return c.statsTabular(ctx, dataSourceID)
	}

	var meta metadataDoc
	if err := c.store.GetBlob(ctx, cachekey.MetadataKey(dataSourceID), &meta); err != nil {
		return c.statsFallback(ctx, dataSourceID)
	}
	if meta.LastWarmed == "" {
		return c.statsFallback(ctx, dataSourceID)
	}

	mem, err := c.estimateMemory(ctx, dataSourceID, meta.TotalEntries)
	if err != nil {
		mem = 0
	}

	return CacheStats{
		DataSourceID:      dataSourceID,
		TotalEntries:      meta.TotalEntries,
		IndexCount:        meta.TotalEntries * 5,
		EstimatedMemoryMB: mem,
		LastWarmed:        meta.LastWarmed,
		IsWarm:            meta.LastWarmed != "",
		UniqueMeasures:    meta.UniqueMeasures,
		UniquePractices:   meta.UniquePractices,
		UniqueProviders:   meta.UniqueProviders,
		UniqueFrequencies: meta.UniqueFrequencies,
	}, nil
}

// statsFallback implements Path B: legacy or absent metadata. Cardinalities
// are reported as 0; a re-warm would upgrade to Path A.
func (c *Collector) statsFallback(ctx context.Context, dataSourceID int64) (CacheStats, error) {
	total, err := c.store.SCard(ctx, cachekey.MasterIndex(dataSourceID))
	if err != nil {
		return CacheStats{}, fmt.Errorf("stats: read master index cardinality: %w", err)
	}
	c.logger.Info("stats: using fallback path, a re-warm would enable richer stats", "dataSourceId", dataSourceID)

	mem, err := c.estimateMemory(ctx, dataSourceID, int(total))
	if err != nil {
		mem = 0
	}

	return CacheStats{
		DataSourceID:      dataSourceID,
		TotalEntries:      int(total),
		IndexCount:        0,
		EstimatedMemoryMB: mem,
		IsWarm:            total > 0,
	}, nil
}

// statsTabular implements Path C by probing a single key: the data source's
// metadata key. There is no separate table-blob key; TotalEntries is 1 when
// the metadata key is present and 0 otherwise.
func (c *Collector) statsTabular(ctx context.Context, dataSourceID int64) (CacheStats, error) {
	_, err := c.store.Get(ctx, cachekey.MetadataKey(dataSourceID))
	present := err == nil

	total := 0
	if present {
		total = 1
	}
	return CacheStats{
		DataSourceID: dataSourceID,
		TotalEntries: total,
		IsWarm:       present,
	}, nil
}

// estimateMemory implements spec.md §4.F's memory estimation: sample up to
// 10 random master-index members, average their blob byte length, and
// scale by totalEntries. Deliberately avoids the store's MEMORY USAGE
// command (not universally supported; historically ~1s timeouts in the
// observed deployment).
func (c *Collector) estimateMemory(ctx context.Context, dataSourceID int64, totalEntries int) (float64, error) {
	if totalEntries <= 0 {
		return 0, nil
	}

	sample, err := c.store.SRandMember(ctx, cachekey.MasterIndex(dataSourceID), 10)
	if err != nil || len(sample) == 0 {
		return 0, nil
	}

	var totalBytes int
	for _, key := range sample {
		val, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}
		totalBytes += len(val)
	}
	if totalBytes == 0 {
		return 0, nil
	}

	avg := float64(totalBytes) / float64(len(sample))
	return (avg * float64(totalEntries)) / (1024 * 1024), nil
}
