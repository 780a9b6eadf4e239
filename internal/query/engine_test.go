package query

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
)

func newEngineHarness(t *testing.T) (*Engine, *kvstore.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := kvstore.New(client, nil, 0)
	cfg := appconfig.Default()
	cfg.TempKeyTTL = 2 * time.Second
	return New(store, cfg, nil), store
}

func seedTuple(t *testing.T, ctx context.Context, store *kvstore.Store, tuple cachekey.Tuple, rows []Row) {
	t.Helper()
	require.NoError(t, store.SetBlob(ctx, cachekey.CacheKey(tuple), rows, 0))
	cacheKey := cachekey.CacheKey(tuple)
	for _, idx := range cachekey.IndexKeys(tuple) {
		require.NoError(t, store.SAdd(ctx, idx, cacheKey))
	}
}

func p(n int64) *int64 { return &n }

func TestQueryBaseIndexOnly(t *testing.T) {
	e, store := newEngineHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	t2 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 2, Frequency: "monthly"}
	seedTuple(t, ctx, store, t1, []Row{{"v": 1.0}})
	seedTuple(t, ctx, store, t2, []Row{{"v": 2.0}})

	rows, err := e.Query(ctx, Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestQuerySinglePracticeFilter(t *testing.T) {
	e, store := newEngineHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	t2 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 2, Frequency: "monthly"}
	seedTuple(t, ctx, store, t1, []Row{{"v": 1.0}})
	seedTuple(t, ctx, store, t2, []Row{{"v": 2.0}})

	rows, err := e.Query(ctx, Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly", PracticeUIDs: []int64{1}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1.0, rows[0]["v"])
}

func TestQueryMultiPracticeUnion(t *testing.T) {
	e, store := newEngineHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	t2 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 2, Frequency: "monthly"}
	t3 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 3, Frequency: "monthly"}
	seedTuple(t, ctx, store, t1, []Row{{"v": 1.0}})
	seedTuple(t, ctx, store, t2, []Row{{"v": 2.0}})
	seedTuple(t, ctx, store, t3, []Row{{"v": 3.0}})

	rows, err := e.Query(ctx, Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly", PracticeUIDs: []int64{1, 2}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestQueryPracticeAndProviderIntersection(t *testing.T) {
	e, store := newEngineHarness(t)
	ctx := context.Background()

	match := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, ProviderUID: p(7), Frequency: "monthly"}
	other := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, ProviderUID: p(9), Frequency: "monthly"}
	seedTuple(t, ctx, store, match, []Row{{"v": "match"}})
	seedTuple(t, ctx, store, other, []Row{{"v": "other"}})

	rows, err := e.Query(ctx, Filter{
		DataSourceID: 1, Measure: "revenue", Frequency: "monthly",
		PracticeUIDs: []int64{1}, ProviderUIDs: []int64{7},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "match", rows[0]["v"])
}

func TestQueryNoMatchesReturnsEmpty(t *testing.T) {
	e, _ := newEngineHarness(t)
	rows, err := e.Query(context.Background(), Filter{DataSourceID: 1, Measure: "nothing", Frequency: "monthly"})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestQueryRejectsMissingRequiredFields(t *testing.T) {
	e, _ := newEngineHarness(t)
	_, err := e.Query(context.Background(), Filter{DataSourceID: 1, Measure: "revenue"})
	require.Error(t, err)
}

func TestBatchQueryAggregatesByMeasure(t *testing.T) {
	e, store := newEngineHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	t2 := cachekey.Tuple{DataSourceID: 1, Measure: "visits", PracticeUID: 1, Frequency: "monthly"}
	seedTuple(t, ctx, store, t1, []Row{{"v": 1.0}})
	seedTuple(t, ctx, store, t2, []Row{{"v": 2.0}})

	out, err := e.BatchQuery(ctx, []Filter{
		{DataSourceID: 1, Measure: "revenue", Frequency: "monthly"},
		{DataSourceID: 1, Measure: "visits", Frequency: "monthly"},
	})
	require.NoError(t, err)
	require.Len(t, out["revenue"], 1)
	require.Len(t, out["visits"], 1)
}

func TestBatchQueryRejectsMixedDataSources(t *testing.T) {
	e, _ := newEngineHarness(t)
	_, err := e.BatchQuery(context.Background(), []Filter{
		{DataSourceID: 1, Measure: "revenue", Frequency: "monthly"},
		{DataSourceID: 2, Measure: "visits", Frequency: "monthly"},
	})
	require.Error(t, err)
}

func TestQueryCleansUpTempKeysEventually(t *testing.T) {
	e, store := newEngineHarness(t)
	ctx := context.Background()

	t1 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	t2 := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 2, Frequency: "monthly"}
	seedTuple(t, ctx, store, t1, []Row{{"v": 1.0}})
	seedTuple(t, ctx, store, t2, []Row{{"v": 2.0}})

	_, err := e.Query(ctx, Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly", PracticeUIDs: []int64{1, 2}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		keys, err := store.ScanAllKeys(ctx, "temp:*", 100, 10)
		return err == nil && len(keys) == 0
	}, 3*time.Second, 50*time.Millisecond)
}
