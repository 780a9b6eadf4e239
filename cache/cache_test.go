package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/sourcedb"
)

type fakeFetcher struct {
	rows []map[string]interface{}
}

func (f *fakeFetcher) FetchAll(ctx context.Context, dataSourceID int64, schema, table string) ([]map[string]interface{}, error) {
	return f.rows, nil
}

func newCacheHarness(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	config := sourcedb.NewStaticConfigProvider(map[int64]sourcedb.DataSourceConfig{
		1: {Schema: "analytics", Table: "fact_visits", ColumnMapping: sourcedb.ColumnMapping{TimePeriodField: "period"}},
	})
	fetcher := &fakeFetcher{rows: []map[string]interface{}{
		{"measure": "revenue", "practice_uid": int64(1), "provider_uid": nil, "period": "monthly", "value": 10.0},
		{"measure": "revenue", "practice_uid": int64(2), "provider_uid": nil, "period": "monthly", "value": 20.0},
	}}

	return New(client, config, fetcher, appconfig.Default(), nil)
}

func TestEndToEndWarmThenQuery(t *testing.T) {
	c := newCacheHarness(t)
	ctx := context.Background()

	result, err := c.Warm(ctx, 1)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, 2, result.EntriesCached)

	warm, err := c.IsWarm(ctx, 1)
	require.NoError(t, err)
	require.True(t, warm)

	last, ok, err := c.LastWarmed(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, last)

	rows, err := c.Query(ctx, Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestInvalidateClearsWarmedState(t *testing.T) {
	c := newCacheHarness(t)
	ctx := context.Background()

	_, err := c.Warm(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, 1))

	warm, err := c.IsWarm(ctx, 1)
	require.NoError(t, err)
	require.False(t, warm)

	rows, err := c.Query(ctx, Filter{DataSourceID: 1, Measure: "revenue", Frequency: "monthly"})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestQueryRejectsInvalidFilterBeforeHittingStore(t *testing.T) {
	c := newCacheHarness(t)
	_, err := c.Query(context.Background(), Filter{Measure: "revenue"})
	require.Error(t, err)
}

func TestStatsAfterWarmReportsCardinalities(t *testing.T) {
	c := newCacheHarness(t)
	ctx := context.Background()

	_, err := c.Warm(ctx, 1)
	require.NoError(t, err)

	s, err := c.Stats(ctx, 1, SourceType(""))
	require.NoError(t, err)
	require.Equal(t, 2, s.TotalEntries)
	require.Equal(t, 1, s.UniqueMeasures)
	require.Equal(t, 2, s.UniquePractices)
}

func TestIsWarmFalseBeforeFirstWarm(t *testing.T) {
	c := newCacheHarness(t)
	warm, err := c.IsWarm(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, warm)
}
