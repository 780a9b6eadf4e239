package warmer

import (
	"context"
	"fmt"
	"time"

	"github.com/insano70/bcos-sub009/internal/cachekey"
)

// publishMetadata writes the last-warm document spec.md §4.C step 7
// requires, consulted by the stats collector's Path A, IsWarm, and
// LastWarmed.
func (w *Warmer) publishMetadata(ctx context.Context, dataSourceID int64, entriesCached, totalRows int, grouped *groupResult) error {
	freqs := make([]string, 0, len(grouped.uniqueFreqs))
	for f := range grouped.uniqueFreqs {
		freqs = append(freqs, f)
	}

	meta := Metadata{
		LastWarmed:        time.Now().UTC().Format(time.RFC3339),
		TotalEntries:      entriesCached,
		TotalRows:         totalRows,
		UniqueMeasures:    len(grouped.uniqueMeasures),
		UniquePractices:   len(grouped.uniquePractices),
		UniqueProviders:   len(grouped.uniqueProviders),
		UniqueFrequencies: freqs,
	}

	if err := w.store.SetBlob(ctx, cachekey.MetadataKey(dataSourceID), meta, 0); err != nil {
		return fmt.Errorf("warmer: publish metadata: %w", err)
	}
	return nil
}
