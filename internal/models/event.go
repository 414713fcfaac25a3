// ============================================================================
// models/event.go
// ============================================================================
package models

import "time"

// EventKind names the pool operation that produced an event.
type EventKind string

const (
	EventFund      EventKind = "fund"
	EventProvide   EventKind = "provide_liquidity"
	EventWithdraw  EventKind = "withdraw"
	EventSwap      EventKind = "swap"
	EventSwapExact EventKind = "swap_exact_out"
)

// PoolEvent is emitted after every committed pool mutation. Amounts are
// base-10 strings; Amount1/Amount2 are the token1/token2 quantities that moved
// between the account and the pool (or were minted by the faucet).
type PoolEvent struct {
	ID        string    `json:"id"`
	Pool      string    `json:"pool"`
	Version   uint64    `json:"version"` // state version the event produced
	Kind      EventKind `json:"kind"`
	Account   string    `json:"account"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction,omitempty"` // "1to2" or "2to1", swaps only
	Amount1   string    `json:"amount1"`
	Amount2   string    `json:"amount2"`
	Shares    string    `json:"shares,omitempty"` // minted or burned shares

	Reserve1    string `json:"reserve1"`
	Reserve2    string `json:"reserve2"`
	TotalShares string `json:"total_shares"`
}
