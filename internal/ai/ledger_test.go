package ai

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/aman-zulfiqar/constant-product-amm/internal/cache"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerQueries(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("CLICKHOUSE_ADDR not set")
	}
	const database = "amm_ai_test"

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
		Addr:     addr,
		Database: database,
		Username: os.Getenv("CLICKHOUSE_USERNAME"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	}, quietLogger())
	if err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	pool := fmt.Sprintf("ai-%d", time.Now().UnixNano())
	now := time.Now().UTC()
	events := []*models.PoolEvent{
		{Kind: models.EventFund, Account: "alice", Amount1: "5000", Amount2: "5000", Reserve1: "0", Reserve2: "0", TotalShares: "0"},
		{Kind: models.EventProvide, Account: "alice", Amount1: "1000", Amount2: "2000", Shares: "1000000", Reserve1: "1000", Reserve2: "2000", TotalShares: "1000000"},
		{Kind: models.EventSwap, Account: "bob", Direction: "1to2", Amount1: "100", Amount2: "181", Reserve1: "1100", Reserve2: "1819", TotalShares: "1000000"},
		{Kind: models.EventSwap, Account: "carol", Direction: "1to2", Amount1: "50", Amount2: "75", Reserve1: "1150", Reserve2: "1744", TotalShares: "1000000"},
	}
	for i, ev := range events {
		ev.ID = fmt.Sprintf("%s-%d", pool, i)
		ev.Pool = pool
		ev.Version = uint64(i + 1)
		ev.Timestamp = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.InsertEvent(ctx, ev))
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: os.Getenv("CLICKHOUSE_USERNAME"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		},
	})
	a := newAgent(nil, db, database, pool, quietLogger())
	defer a.Close()

	snap, err := a.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), snap.Version)
	assert.Equal(t, "1150", snap.Reserve1)
	assert.Equal(t, "1744", snap.Reserve2)
	assert.Equal(t, "1000000", snap.TotalShares)

	activity, err := a.Activity(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, activity, 3)
	byKind := make(map[models.EventKind]KindActivity)
	for _, act := range activity {
		byKind[act.Kind] = act
	}
	assert.Equal(t, uint64(2), byKind[models.EventSwap].Events)
	assert.Equal(t, uint64(2), byKind[models.EventSwap].Accounts)
	assert.Equal(t, "150", byKind[models.EventSwap].Amount1)
	assert.Equal(t, "256", byKind[models.EventSwap].Amount2)

	rows, err := a.RunSQL(ctx, fmt.Sprintf("SELECT toString(amount1) AS a1 FROM pool_events WHERE pool = '%s' ORDER BY version", pool))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "5000", rows[0]["a1"])

	empty := newAgent(nil, db, database, pool+"-none", quietLogger())
	_, err = empty.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoEvents)
}
