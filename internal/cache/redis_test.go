package cache

import (
	"context"
	"testing"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/aman-zulfiqar/constant-product-amm/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   3, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func TestNewRedisStore(t *testing.T) {
	_, err := NewRedisStore(nil, "main", nil)
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	store, err := NewRedisStore(client, "", nil)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultPoolID, store.pool)
	assert.Equal(t, int64(constants.MaxRecentEvents), store.maxRecent)

	store.WithMaxRecent(0)
	assert.Equal(t, int64(constants.MaxRecentEvents), store.maxRecent)
	store.WithMaxRecent(5)
	assert.Equal(t, int64(5), store.maxRecent)
}

func TestRedisStore_SaveLoad(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	store, err := NewRedisStore(client, "test", quietLogger())
	require.NoError(t, err)

	_, _, err = store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrStateNotFound)

	pool := amm.New(3)
	pool.Fund("alice", amm.NewAmount(5000), amm.NewAmount(5000))
	_, err = pool.ProvideLiquidity("alice", amm.NewAmount(1000), amm.NewAmount(2000))
	require.NoError(t, err)

	v1, err := store.Save(ctx, pool.Export())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1)

	v2, err := store.Save(ctx, pool.Export())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2)

	st, version, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
	assert.Equal(t, pool.Export(), st)

	restored, err := amm.Restore(st)
	require.NoError(t, err)
	assert.Equal(t, pool.Summary(), restored.Summary())

	// pools are isolated by key prefix
	other, err := NewRedisStore(client, "other", quietLogger())
	require.NoError(t, err)
	_, _, err = other.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrStateNotFound)
}

func TestRedisStore_LoadCorrupt(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, constants.StateKey("bad"), "{not json", 0).Err())
	store, err := NewRedisStore(client, "bad", quietLogger())
	require.NoError(t, err)

	_, _, err = store.Load(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrStateNotFound)
}

func TestRedisStore_RecentEvents(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	store, err := NewRedisStore(client, "test", quietLogger())
	require.NoError(t, err)
	store.WithMaxRecent(3)

	events, err := store.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.AddRecentEvent(ctx, &models.PoolEvent{
			ID:      "ev" + string(rune('0'+i)),
			Pool:    "test",
			Version: uint64(i),
			Kind:    models.EventSwap,
		}))
	}

	events, err = store.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []uint64{5, 4, 3}, []uint64{events[0].Version, events[1].Version, events[2].Version})

	events, err = store.GetRecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev5", events[0].ID)

	events, err = store.GetRecentEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)

	// malformed entries are skipped
	require.NoError(t, client.LPush(ctx, constants.RecentEventsKey("test"), "garbage").Err())
	events, err = store.GetRecentEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev5", events[0].ID)
}
