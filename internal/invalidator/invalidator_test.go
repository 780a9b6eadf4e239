package invalidator

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/insano70/bcos-sub009/internal/appconfig"
	"github.com/insano70/bcos-sub009/internal/cachekey"
	"github.com/insano70/bcos-sub009/internal/kvstore"
)

func TestInvalidateRemovesAllProductionState(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := kvstore.New(client, nil, 0)
	ctx := context.Background()

	tuple := cachekey.Tuple{DataSourceID: 1, Measure: "revenue", PracticeUID: 1, Frequency: "monthly"}
	require.NoError(t, store.Set(ctx, cachekey.CacheKey(tuple), `[{"v":1}]`, 0))
	for _, idx := range cachekey.IndexKeys(tuple) {
		require.NoError(t, store.SAdd(ctx, idx, cachekey.CacheKey(tuple)))
	}
	require.NoError(t, store.Set(ctx, cachekey.MetadataKey(1), `{"lastWarmed":"x"}`, 0))

	inv := New(store, appconfig.Default(), nil)
	require.NoError(t, inv.Invalidate(ctx, 1))

	_, err = store.Get(ctx, cachekey.CacheKey(tuple))
	require.ErrorIs(t, err, redis.Nil)

	for _, idx := range cachekey.IndexKeys(tuple) {
		card, err := store.SCard(ctx, idx)
		require.NoError(t, err)
		require.Zero(t, card)
	}

	_, err = store.Get(ctx, cachekey.MetadataKey(1))
	require.ErrorIs(t, err, redis.Nil)
}

func TestInvalidateOnEmptyDataSourceIsNoop(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := kvstore.New(client, nil, 0)
	inv := New(store, appconfig.Default(), nil)
	require.NoError(t, inv.Invalidate(context.Background(), 999))
}
