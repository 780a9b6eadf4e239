package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/kvstore"
	"github.com/insano70/bcos-sub009/internal/logging"
)

// Engine resolves filters against the index sets and materializes matching
// blobs.
type Engine struct {
	store  *kvstore.Store
	cfg    appconfig.Config
	logger logging.Logger
}

// New builds an Engine. logger may be nil.
func New(store *kvstore.Store, cfg appconfig.Config, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{store: store, cfg: cfg, logger: logger}
}

// Query implements spec.md §4.D's plan construction, set resolution, and
// MGET materialization.
func (e *Engine) Query(ctx context.Context, f Filter) ([]Row, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	sets := []string{cachekey.BaseIndex(f.DataSourceID, f.Measure, f.Frequency)}
	var cleanup []string

	if len(f.PracticeUIDs) > 0 {
		key, toCleanup, err := e.practiceSet(ctx, f)
		if err != nil {
			return nil, err
		}
		sets = append(sets, key)
		if toCleanup != "" {
			cleanup = append(cleanup, toCleanup)
		}
	}
	if len(f.ProviderUIDs) > 0 {
		key, toCleanup, err := e.providerSet(ctx, f)
		if err != nil {
			return nil, err
		}
		sets = append(sets, key)
		if toCleanup != "" {
			cleanup = append(cleanup, toCleanup)
		}
	}

	matching, resultCleanup, err := e.resolveMatching(ctx, f.DataSourceID, sets)
	if err != nil {
		return nil, err
	}
	if resultCleanup != "" {
		cleanup = append(cleanup, resultCleanup)
	}

	if len(cleanup) > 0 {
		go e.cleanupTempKeys(cleanup)
	}

	if len(matching) == 0 {
		return nil, nil
	}

	blobs, err := e.store.Mget(ctx, matching, e.cfg.MgetBatch)
	if err != nil {
		return nil, fmt.Errorf("query: materialize matches: %w", err)
	}

	var rows []Row
	for _, blob := range blobs {
		var group []Row
		if err := json.Unmarshal(blob, &group); err != nil {
			e.logger.Warn("query: skipping blob with unexpected shape", "error", err.Error())
			continue
		}
		rows = append(rows, group...)
	}
	return rows, nil
}

func (e *Engine) practiceSet(ctx context.Context, f Filter) (key string, tempKey string, err error) {
	if len(f.PracticeUIDs) == 1 {
		return cachekey.PracticeIndex(f.DataSourceID, f.Measure, f.PracticeUIDs[0], f.Frequency), "", nil
	}
	sources := make([]string, len(f.PracticeUIDs))
	for i, p := range f.PracticeUIDs {
		sources[i] = cachekey.PracticeIndex(f.DataSourceID, f.Measure, p, f.Frequency)
	}
	tmp := cachekey.TempKey(f.DataSourceID, cachekey.TempOpUnion)
	if _, err := e.store.SUnionStore(ctx, tmp, sources...); err != nil {
		return "", "", fmt.Errorf("query: union practice sets: %w", err)
	}
	if err := e.store.Expire(ctx, tmp, e.cfg.TempKeyTTL); err != nil {
		return "", "", fmt.Errorf("query: expire temp union key: %w", err)
	}
	return tmp, tmp, nil
}

func (e *Engine) providerSet(ctx context.Context, f Filter) (key string, tempKey string, err error) {
	if len(f.ProviderUIDs) == 1 {
		return cachekey.ProviderIndex(f.DataSourceID, f.Measure, f.Frequency, providerToken(f.ProviderUIDs[0])), "", nil
	}
	sources := make([]string, len(f.ProviderUIDs))
	for i, p := range f.ProviderUIDs {
		sources[i] = cachekey.ProviderIndex(f.DataSourceID, f.Measure, f.Frequency, providerToken(p))
	}
	tmp := cachekey.TempKey(f.DataSourceID, cachekey.TempOpUnion)
	if _, err := e.store.SUnionStore(ctx, tmp, sources...); err != nil {
		return "", "", fmt.Errorf("query: union provider sets: %w", err)
	}
	if err := e.store.Expire(ctx, tmp, e.cfg.TempKeyTTL); err != nil {
		return "", "", fmt.Errorf("query: expire temp union key: %w", err)
	}
	return tmp, tmp, nil
}

func providerToken(p int64) string {
	return fmt.Sprintf("%d", p)
}

// resolveMatching implements spec.md §4.D step 4: a single set needs no
// intersection; more than one is resolved via SINTERSTORE into a temp key,
// read back with SMEMBERS, and flagged for cleanup.
func (e *Engine) resolveMatching(ctx context.Context, dataSourceID int64, sets []string) (matching []string, tempKey string, err error) {
	if len(sets) == 1 {
		members, err := e.store.SMembers(ctx, sets[0])
		if err != nil {
			return nil, "", fmt.Errorf("query: read base set: %w", err)
		}
		return members, "", nil
	}

	tmp := cachekey.TempKey(dataSourceID, cachekey.TempOpIntersect)
	if _, err := e.store.SInterStore(ctx, tmp, sets...); err != nil {
		return nil, "", fmt.Errorf("query: intersect sets: %w", err)
	}
	if err := e.store.Expire(ctx, tmp, e.cfg.TempKeyTTL); err != nil {
		return nil, "", fmt.Errorf("query: expire temp result key: %w", err)
	}
	members, err := e.store.SMembers(ctx, tmp)
	if err != nil {
		return nil, "", fmt.Errorf("query: read intersection: %w", err)
	}
	return members, tmp, nil
}

// cleanupTempKeys fire-and-forgets deletion of query-time temp keys; the
// 10s TTL set on each is the correctness backstop if this goroutine never
// runs (process exit, panic elsewhere).
func (e *Engine) cleanupTempKeys(keys []string) {
	ctx := context.Background()
	if err := e.store.Del(ctx, keys...); err != nil {
		e.logger.Warn("query: temp key cleanup failed, relying on TTL", "error", err.Error())
	}
}
