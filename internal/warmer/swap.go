package warmer

import (
	"context"
	"fmt"
	"strings"

	"github.com/insano70/bcos-sub009/internal/cachekey"
)

// swapShadow implements spec.md §4.C step 6: SCAN every shadow cache key,
// then every shadow index key, renaming each into its production name and
// applying defaultTTL in the same pipelined round trip. RENAME overwrites
// any pre-existing production key atomically.
func (w *Warmer) swapShadow(ctx context.Context, dataSourceID int64) error {
	if err := w.swapPattern(ctx, cachekey.ShadowCachePattern(dataSourceID), "shadow:", "cache:"); err != nil {
		return fmt.Errorf("warmer: swap cache generation: %w", err)
	}
	if err := w.swapPattern(ctx, cachekey.ShadowIndexPattern(dataSourceID), "shadow_idx:", "idx:"); err != nil {
		return fmt.Errorf("warmer: swap index generation: %w", err)
	}
	return nil
}

func (w *Warmer) swapPattern(ctx context.Context, pattern, shadowPrefix, productionPrefix string) error {
	return w.store.ScanAll(ctx, pattern, int64(w.cfg.ScanCount), w.cfg.MaxScanPages, func(keys []string) error {
		pipe := w.store.Pipeline(ctx)
		for _, shadowKey := range keys {
			name := stripGlobalPrefix(shadowKey, shadowPrefix)
			productionKey := productionPrefix + strings.TrimPrefix(name, shadowPrefix)
			pipe.Rename(ctx, shadowKey, productionKey)
			pipe.Expire(ctx, productionKey, w.cfg.DefaultTTL)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// stripGlobalPrefix removes any store-configured global key prefix that
// precedes the cache namespace token, so RENAME targets a key name the
// client hasn't already re-prefixed. This module's client is never
// configured with such a prefix (see DESIGN.md), so in practice this is an
// identity transform: it drops whatever precedes the first occurrence of
// namespaceToken, and returns key unchanged when the token is at the start
// or absent.
func stripGlobalPrefix(key, namespaceToken string) string {
	if idx := strings.Index(key, namespaceToken); idx > 0 {
		return key[idx:]
	}
	return key
}
