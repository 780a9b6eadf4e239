// Package invalidator implements the Invalidator component of spec.md
// §4.E: unconditional, lock-free deletion of every key belonging to a data
// source.
package invalidator

import (
	"context"
	"fmt"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/kvstore"
	"github.com/insano70/bcos-sub009/internal/logging"
)

// Invalidator deletes all production state for a data source.
type Invalidator struct {
	store  *kvstore.Store
	cfg    appconfig.Config
	logger logging.Logger
}

// New builds an Invalidator. logger may be nil.
func New(store *kvstore.Store, cfg appconfig.Config, logger logging.Logger) *Invalidator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Invalidator{store: store, cfg: cfg, logger: logger}
}

// Invalidate implements spec.md §4.E. It takes no lock: invalidation is
// idempotent and composable with a concurrent warm, which may republish
// state on completion. Per-batch failures are logged and the sweep
// continues rather than aborting the whole operation.
func (inv *Invalidator) Invalidate(ctx context.Context, dataSourceID int64) error {
	masterIndex := cachekey.MasterIndex(dataSourceID)

	members, err := inv.store.SMembers(ctx, masterIndex)
	if err != nil {
		return fmt.Errorf("invalidator: read master index: %w", err)
	}
	inv.deleteInBatches(ctx, members)

	if err := inv.store.ScanAll(ctx, cachekey.IndexPattern(dataSourceID), int64(inv.cfg.ScanCount), inv.cfg.MaxScanPages, func(keys []string) error {
		inv.deleteInBatches(ctx, keys)
		return nil
	}); err != nil {
		inv.logger.Warn("invalidator: scan for index keys failed, continuing", "dataSourceId", dataSourceID, "error", err.Error())
	}

	if err := inv.store.Del(ctx, cachekey.MetadataKey(dataSourceID)); err != nil {
		inv.logger.Warn("invalidator: delete metadata failed", "dataSourceId", dataSourceID, "error", err.Error())
	}
	return nil
}

func (inv *Invalidator) deleteInBatches(ctx context.Context, keys []string) {
	batch := inv.cfg.InvalidationBatch
	if batch <= 0 {
		batch = len(keys)
	}
	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		if err := inv.store.Del(ctx, keys[start:end]...); err != nil {
			inv.logger.Warn("invalidator: batch delete failed, continuing", "error", err.Error())
		}
	}
}
