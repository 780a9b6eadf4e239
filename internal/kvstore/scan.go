package kvstore

import (
	"context"
	"fmt"

	"github.com/insano70/bcos-sub009/internal/cacheerr"
)

// ScanAll iterates every key matching pattern across SCAN cursor pages,
// invoking onPage once per page with the keys it returned. It terminates
// when the cursor returns to 0 or when maxPages pages have been read,
// whichever comes first — the safety ceiling spec.md §4.B requires against
// pathological growth.
func (s *Store) ScanAll(ctx context.Context, pattern string, pageSize int64, maxPages int, onPage func(keys []string) error) error {
	var cursor uint64
	for page := 0; ; page++ {
		if page >= maxPages {
			return fmt.Errorf("kvstore: scan %q: %w", pattern, cacheerr.ErrScanCeilingExceeded)
		}

		keys, next, err := s.client.Scan(ctx, cursor, pattern, pageSize).Result()
		if err != nil {
			return wrapErr("SCAN", err)
		}

		if len(keys) > 0 {
			if err := onPage(keys); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ScanAllKeys is a convenience wrapper over ScanAll that collects every
// matching key into a single slice.
func (s *Store) ScanAllKeys(ctx context.Context, pattern string, pageSize int64, maxPages int) ([]string, error) {
	var all []string
	err := s.ScanAll(ctx, pattern, pageSize, maxPages, func(keys []string) error {
		all = append(all, keys...)
		return nil
	})
	return all, err
}
