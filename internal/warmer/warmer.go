// Package warmer implements the Warmer component of spec.md §4.C: the
// shadow-write-then-atomic-swap generation replacement that repopulates a
// data source's cache slice from the external analytics database without
// ever exposing readers to a partially rewritten generation.
package warmer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cacheerr"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/kvstore"
	"github.com/insano70/bcos-sub009/internal/logging"
	"github.com/insano70/bcos-sub009/internal/sourcedb"
)

// WarmResult is the public outcome of a Warm call (spec.md §4.C).
type WarmResult struct {
	EntriesCached  int
	EntriesSkipped int
	TotalRows      int
	Duration       time.Duration
	Skipped        bool
}

// ProgressFunc is invoked by WarmWithProgress. rowsProcessed/totalRows are
// equal and percent is 100 on the single invocation the current
// implementation makes (spec.md: "true streaming progress is a future
// extension").
type ProgressFunc func(rowsProcessed, totalRows, percent int)

// Warmer populates the shadow generation and swaps it into place for one
// data source at a time, guarded by the distributed lock.
type Warmer struct {
	store    *kvstore.Store
	config   sourcedb.ConfigProvider
	fetcher  sourcedb.Fetcher
	cfg      appconfig.Config
	logger   logging.Logger
	limiter  *rate.Limiter
}

// New builds a Warmer. logger may be nil (defaults to a no-op logger).
func New(store *kvstore.Store, config sourcedb.ConfigProvider, fetcher sourcedb.Fetcher, cfg appconfig.Config, logger logging.Logger) *Warmer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Warmer{store: store, config: config, fetcher: fetcher, cfg: cfg, logger: logger}
}

// Warm executes the full algorithm of spec.md §4.C.
func (w *Warmer) Warm(ctx context.Context, dataSourceID int64) (WarmResult, error) {
	return w.warm(ctx, dataSourceID, nil)
}

// WarmWithProgress behaves identically to Warm; on a non-skipped
// completion it additionally invokes progress once with
// (totalRows, totalRows, 100), per spec.md's note that streaming progress
// is a future extension, not current behavior.
func (w *Warmer) WarmWithProgress(ctx context.Context, dataSourceID int64, progress ProgressFunc) (WarmResult, error) {
	return w.warm(ctx, dataSourceID, progress)
}

// WaitAndWarm is a convenience wrapper that rate-limits repeated warm
// attempts against the same process (e.g. a poller retrying a data source
// whose lock is currently held by another warm), so callers don't need to
// hand-roll backoff around Warm's {skipped:true} result.
func (w *Warmer) WaitAndWarm(ctx context.Context, dataSourceID int64) (WarmResult, error) {
	if w.limiter == nil {
		w.limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return WarmResult{}, fmt.Errorf("warmer: rate limiter wait: %w", ctx.Err())
	}
	return w.Warm(ctx, dataSourceID)
}

func (w *Warmer) warm(ctx context.Context, dataSourceID int64, progress ProgressFunc) (result WarmResult, err error) {
	start := time.Now()

	// Defensive sweep for generations orphaned by a prior aborted warm
	// (spec.md §9 open question): shadow keys carry no TTL, so any found
	// while the lock is free are deleted (see sweepOrphanShadows).
	if sweepErr := w.sweepOrphanShadows(ctx, dataSourceID); sweepErr != nil {
		w.logger.Warn("warmer: orphan-shadow sweep failed, continuing", "dataSourceId", dataSourceID, "error", sweepErr.Error())
	}

	lockKey := cachekey.LockKey(dataSourceID)
	acquired, err := w.store.AcquireLock(ctx, lockKey, w.cfg.LockTTL)
	if err != nil {
		return WarmResult{}, fmt.Errorf("warmer: acquire lock: %w", err)
	}
	if !acquired {
		return WarmResult{Skipped: true}, nil
	}
	defer func() {
		if releaseErr := w.store.ReleaseLock(context.Background(), lockKey); releaseErr != nil {
			w.logger.Error("warmer: release lock failed", "dataSourceId", dataSourceID, "error", releaseErr.Error())
		}
	}()

	cfgDoc, err := w.config.GetDataSourceConfig(ctx, dataSourceID)
	if err != nil {
		return WarmResult{}, fmt.Errorf("warmer: load data source config: %w: %v", cacheerr.ErrConfig, err)
	}
	if !w.schemaAllowed(cfgDoc.Schema) {
		return WarmResult{}, fmt.Errorf("warmer: schema %q not in allow-list: %w", cfgDoc.Schema, cacheerr.ErrConfig)
	}
	if err := sourcedb.ValidateTableName(cfgDoc.Table); err != nil {
		return WarmResult{}, fmt.Errorf("warmer: %v: %w", err, cacheerr.ErrConfig)
	}

	rows, err := w.fetcher.FetchAll(ctx, dataSourceID, cfgDoc.Schema, cfgDoc.Table)
	if err != nil {
		return WarmResult{}, fmt.Errorf("warmer: fetch rows: %w: %v", cacheerr.ErrSourceDB, err)
	}

	grouped := groupRows(rows, cfgDoc.ColumnMapping.TimePeriodField)
	if grouped.droppedRows > 0 {
		w.logger.Warn("warmer: dropped rows missing required fields", "dataSourceId", dataSourceID, "droppedRows", grouped.droppedRows)
	}

	entriesCached, entriesSkipped, err := w.writeShadowGeneration(ctx, dataSourceID, grouped)
	if err != nil {
		return WarmResult{}, err
	}

	if err := w.swapShadow(ctx, dataSourceID); err != nil {
		return WarmResult{}, err
	}

	if err := w.publishMetadata(ctx, dataSourceID, entriesCached, len(rows), grouped); err != nil {
		return WarmResult{}, err
	}

	result = WarmResult{
		EntriesCached:  entriesCached,
		EntriesSkipped: entriesSkipped,
		TotalRows:      len(rows),
		Duration:       time.Since(start),
	}
	if progress != nil {
		progress(len(rows), len(rows), 100)
	}
	return result, nil
}

func (w *Warmer) schemaAllowed(schema string) bool {
	for _, s := range w.cfg.AllowedSchemas {
		if s == schema {
			return true
		}
	}
	return false
}

// writeShadowGeneration implements spec.md §4.C step 5: pipelined batches
// of SET ShadowCacheKey + 5x SADD ShadowIndex (member = production cache
// key name, per I6), flushed every PipelineBatch ops.
func (w *Warmer) writeShadowGeneration(ctx context.Context, dataSourceID int64, grouped *groupResult) (entriesCached, entriesSkipped int, err error) {
	pipe := w.store.Pipeline(ctx)
	opsPerEntry := 6 // 1 SET + 5 SADD

	flush := func() error {
		if pipe.Len() == 0 {
			return nil
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("warmer: flush shadow pipeline: %w", err)
		}
		pipe = w.store.Pipeline(ctx)
		return nil
	}

	for key, rows := range grouped.groups {
		if len(rows) == 0 {
			continue
		}
		payload, marshalErr := json.Marshal(rows)
		if marshalErr != nil {
			w.logger.Warn("warmer: skipping group, serialization failed", "dataSourceId", dataSourceID, "error", marshalErr.Error())
			entriesSkipped++
			continue
		}
		if int64(len(payload)) > w.cfg.MaxEntryBytes {
			w.logger.Warn("warmer: skipping group, entry too large", "dataSourceId", dataSourceID, "bytes", len(payload), "maxEntryBytes", w.cfg.MaxEntryBytes)
			entriesSkipped++
			continue
		}

		t := key.tuple(dataSourceID)
		shadowKey := cachekey.ShadowCacheKey(t)
		productionKey := cachekey.CacheKey(t)
		shadowIndexes := cachekey.ShadowIndexKeys(t)

		if pipe.Len()+opsPerEntry > w.cfg.PipelineBatch {
			if err := flush(); err != nil {
				return entriesCached, entriesSkipped, err
			}
		}

		pipe.SetBlob(ctx, shadowKey, payload, 0)
		for _, idx := range shadowIndexes {
			pipe.SAdd(ctx, idx, productionKey)
		}
		entriesCached++
	}

	if err := flush(); err != nil {
		return entriesCached, entriesSkipped, err
	}
	return entriesCached, entriesSkipped, nil
}
