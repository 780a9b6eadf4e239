package warmer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/kvstore"
	"github.com/insano70/bcos-sub009/internal/sourcedb"
)

type fakeFetcher struct {
	rows []map[string]interface{}
	err  error
}

func (f *fakeFetcher) FetchAll(ctx context.Context, dataSourceID int64, schema, table string) ([]map[string]interface{}, error) {
	return f.rows, f.err
}

func newHarness(t *testing.T) (*Warmer, *kvstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := kvstore.New(client, nil, 0)
	cfg := appconfig.Default()
	cfg.LockTTL = 5 * time.Second

	config := sourcedb.NewStaticConfigProvider(map[int64]sourcedb.DataSourceConfig{
		1: {
			Schema: "analytics",
			Table:  "fact_visits",
			ColumnMapping: sourcedb.ColumnMapping{TimePeriodField: "period"},
		},
	})
	fetcher := &fakeFetcher{rows: sampleRows()}

	w := New(store, config, fetcher, cfg, nil)
	return w, store, mr
}

func sampleRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"measure": "revenue", "practice_uid": int64(1), "provider_uid": nil, "period": "monthly", "value": 100.0},
		{"measure": "revenue", "practice_uid": int64(1), "provider_uid": int64(7), "period": "monthly", "value": 42.0},
		{"measure": "visits", "practice_uid": int64(2), "provider_uid": int64(7), "period": "monthly", "value": 5.0},
		{"measure": "visits", "practice_uid": int64(2), "provider_uid": nil, "period": "monthly", "value": 2.0},
		// Dropped: missing measure.
		{"measure": "", "practice_uid": int64(3), "provider_uid": nil, "period": "monthly", "value": 1.0},
	}
}

func TestWarmPopulatesProductionKeysAndIndexes(t *testing.T) {
	w, store, _ := newHarness(t)
	ctx := context.Background()

	result, err := w.Warm(ctx, 1)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, 4, result.EntriesCached) // (revenue,1,nil) (revenue,1,7) (visits,2,7) (visits,2,nil)
	require.Equal(t, 5, result.TotalRows)

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	val, err := store.Get(ctx, cachekey.CacheKey(t1))
	require.NoError(t, err)
	require.NotEmpty(t, val)

	members, err := store.SMembers(ctx, cachekey.MasterIndex(1))
	require.NoError(t, err)
	require.Len(t, members, 4)

	// Shadow keys must not survive the swap.
	shadowKeys, err := store.ScanAllKeys(ctx, cachekey.ShadowCachePattern(1), 100, 10)
	require.NoError(t, err)
	require.Empty(t, shadowKeys)
}

func TestWarmPublishesMetadata(t *testing.T) {
	w, store, _ := newHarness(t)
	ctx := context.Background()

	_, err := w.Warm(ctx, 1)
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, store.GetBlob(ctx, cachekey.MetadataKey(1), &meta))
	require.Equal(t, 4, meta.TotalEntries)
	require.Equal(t, 2, meta.UniqueMeasures)
	require.Equal(t, 2, meta.UniquePractices)
	require.Equal(t, 1, meta.UniqueProviders)
	require.NotEmpty(t, meta.LastWarmed)
}

func TestSecondWarmSkipsWhileLockHeld(t *testing.T) {
	w, store, _ := newHarness(t)
	ctx := context.Background()

	ok, err := store.AcquireLock(ctx, cachekey.LockKey(1), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := w.Warm(ctx, 1)
	require.NoError(t, err)
	require.True(t, result.Skipped)
}

func TestWarmWithProgressInvokesCallbackOnce(t *testing.T) {
	w, _, _ := newHarness(t)
	ctx := context.Background()

	calls := 0
	_, err := w.WarmWithProgress(ctx, 1, func(rowsProcessed, totalRows, percent int) {
		calls++
		require.Equal(t, rowsProcessed, totalRows)
		require.Equal(t, 100, percent)
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestWarmRejectsUnlistedSchema(t *testing.T) {
	w, _, _ := newHarness(t)
	config := sourcedb.NewStaticConfigProvider(map[int64]sourcedb.DataSourceConfig{
		2: {Schema: "untrusted", Table: "fact_visits", ColumnMapping: sourcedb.ColumnMapping{TimePeriodField: "period"}},
	})
	w.config = config

	_, err := w.Warm(context.Background(), 2)
	require.Error(t, err)
}

func TestWarmSkipsEntriesExceedingMaxEntryBytes(t *testing.T) {
	w, store, _ := newHarness(t)
	w.cfg.MaxEntryBytes = 1
	ctx := context.Background()

	result, err := w.Warm(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, result.EntriesCached)
	require.Equal(t, 4, result.EntriesSkipped)
	require.Equal(t, 5, result.TotalRows)

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	_, err = store.Get(ctx, cachekey.CacheKey(t1))
	require.Equal(t, redis.Nil, err)

	members, err := store.SMembers(ctx, cachekey.MasterIndex(1))
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestOrphanShadowSweepDeletesWhenLockFree(t *testing.T) {
	w, store, _ := newHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	require.NoError(t, store.Set(ctx, cachekey.ShadowCacheKey(t1), "stale-json", 0))

	require.NoError(t, w.sweepOrphanShadows(ctx, 1))

	keys, err := store.ScanAllKeys(ctx, cachekey.ShadowCachePattern(1), 100, 10)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestOrphanShadowSweepSkipsWhileLockHeld(t *testing.T) {
	w, store, _ := newHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	require.NoError(t, store.Set(ctx, cachekey.ShadowCacheKey(t1), "in-progress-json", 0))

	ok, err := store.AcquireLock(ctx, cachekey.LockKey(1), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, w.sweepOrphanShadows(ctx, 1))

	keys, err := store.ScanAllKeys(ctx, cachekey.ShadowCachePattern(1), 100, 10)
	require.NoError(t, err)
	require.Len(t, keys, 1)
}
