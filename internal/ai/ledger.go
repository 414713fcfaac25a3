package ai

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
)

// ErrNoEvents is returned when the ledger holds nothing for the pool.
var ErrNoEvents = errors.New("no pool events in the ledger")

// PoolSnapshot is the pool state recorded by the highest-version event.
type PoolSnapshot struct {
	Pool        string    `json:"pool"`
	Version     uint64    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Reserve1    string    `json:"reserve1"`
	Reserve2    string    `json:"reserve2"`
	TotalShares string    `json:"total_shares"`
}

// Price is token1 priced in token2, 0 for an empty pool. Float precision is
// enough for display.
func (s PoolSnapshot) Price() float64 {
	r1, err1 := strconv.ParseFloat(s.Reserve1, 64)
	r2, err2 := strconv.ParseFloat(s.Reserve2, 64)
	if err1 != nil || err2 != nil || r1 == 0 {
		return 0
	}
	return r2 / r1
}

// KindActivity aggregates the events of one kind.
type KindActivity struct {
	Kind     models.EventKind `json:"kind"`
	Events   uint64           `json:"events"`
	Accounts uint64           `json:"accounts"`
	Amount1  string           `json:"amount1"`
	Amount2  string           `json:"amount2"`
}

// LatestSnapshot reads the reserves left by the pool's newest event.
func (a *Agent) LatestSnapshot(ctx context.Context) (*PoolSnapshot, error) {
	q := fmt.Sprintf(`
		SELECT version, timestamp, toString(reserve1), toString(reserve2), toString(total_shares)
		FROM %s.%s
		WHERE pool = ?
		ORDER BY version DESC
		LIMIT 1`, a.database, a.table)

	s := PoolSnapshot{Pool: a.pool}
	err := a.db.QueryRowContext(ctx, q, a.pool).Scan(&s.Version, &s.Timestamp, &s.Reserve1, &s.Reserve2, &s.TotalShares)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pool %s", ErrNoEvents, a.pool)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	return &s, nil
}

// Activity totals events per kind committed within window.
func (a *Agent) Activity(ctx context.Context, window time.Duration) ([]KindActivity, error) {
	if window <= 0 {
		return nil, fmt.Errorf("activity window must be positive, got %s", window)
	}
	q := fmt.Sprintf(`
		SELECT kind, count(), uniqExact(account), toString(sum(amount1)), toString(sum(amount2))
		FROM %s.%s
		WHERE pool = ? AND timestamp >= ?
		GROUP BY kind
		ORDER BY kind`, a.database, a.table)

	rows, err := a.db.QueryContext(ctx, q, a.pool, time.Now().Add(-window).UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []KindActivity
	for rows.Next() {
		var (
			kind string
			act  KindActivity
		)
		if err := rows.Scan(&kind, &act.Events, &act.Accounts, &act.Amount1, &act.Amount2); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		act.Kind = models.EventKind(kind)
		out = append(out, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity iteration error: %w", err)
	}
	return out, nil
}
