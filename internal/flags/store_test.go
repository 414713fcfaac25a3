package flags

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil, "main")
	assert.ErrorIs(t, err, ErrNilStorage)
}

func TestValidateOp(t *testing.T) {
	for _, op := range Operations {
		assert.NoError(t, ValidateOp(op), op)
	}
	for _, op := range []string{"", "SWAP", "estimate", "swap "} {
		assert.ErrorIs(t, ValidateOp(op), ErrUnknownOp, op)
	}
}

func TestStore_SetGet(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, OpSwap)
	assert.ErrorIs(t, err, ErrNotFound)

	paused, err := store.Paused(ctx, OpSwap)
	require.NoError(t, err)
	assert.False(t, paused)

	flag, err := store.Set(ctx, OpSwap, true, "oracle maintenance")
	require.NoError(t, err)
	assert.Equal(t, OpSwap, flag.Op)
	assert.True(t, flag.Paused)
	assert.NotZero(t, flag.UpdatedAt)

	got, err := store.Get(ctx, OpSwap)
	require.NoError(t, err)
	assert.Equal(t, "oracle maintenance", got.Reason)
	assert.True(t, got.UpdatedAt.Equal(flag.UpdatedAt))

	paused, err = store.Paused(ctx, OpSwap)
	require.NoError(t, err)
	assert.True(t, paused)

	paused, err = store.Paused(ctx, OpFaucet)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestStore_ListAndClear(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Set(ctx, OpWithdraw, true, "")
	require.NoError(t, err)

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, len(Operations))
	for i, f := range items {
		assert.Equal(t, Operations[i], f.Op)
		assert.Equal(t, f.Op == OpWithdraw, f.Paused, f.Op)
	}

	require.NoError(t, store.Clear(ctx, OpWithdraw))
	paused, err := store.Paused(ctx, OpWithdraw)
	require.NoError(t, err)
	assert.False(t, paused)

	// clearing twice is fine
	require.NoError(t, store.Clear(ctx, OpWithdraw))
}

func TestStore_PoolsAreIsolated(t *testing.T) {
	client := setupTestRedis(t)
	a, err := NewStore(client, "a")
	require.NoError(t, err)
	b, err := NewStore(client, "b")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Set(ctx, OpLiquidity, true, "")
	require.NoError(t, err)

	paused, err := b.Paused(ctx, OpLiquidity)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestStore_RejectsUnknownOps(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Set(ctx, "estimate", true, "")
	assert.ErrorIs(t, err, ErrUnknownOp)
	_, err = store.Get(ctx, "estimate")
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.ErrorIs(t, store.Clear(ctx, "estimate"), ErrUnknownOp)
}
