package flags

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("flag not found")
	ErrUnknownOp  = errors.New("unknown operation")
	ErrNilStorage = errors.New("redis client is nil")
)

// Operations that can be paused. Reads and estimates are never gated.
const (
	OpFaucet    = "faucet"
	OpLiquidity = "liquidity"
	OpWithdraw  = "withdraw"
	OpSwap      = "swap"
)

// Operations lists every pausable operation in display order.
var Operations = []string{OpFaucet, OpLiquidity, OpWithdraw, OpSwap}

// Flag pauses one pool operation while Paused is true.
type Flag struct {
	Op        string    `json:"op"`
	Paused    bool      `json:"paused"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
