package server

import (
	"github.com/aman-zulfiqar/constant-product-amm/internal/ai"
	"github.com/aman-zulfiqar/constant-product-amm/internal/flags"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Kind    string `json:"kind,omitempty"`    // Pool error kind, e.g. "InsufficientBalance"
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// PoolResponse is the pool-wide view. Amounts are base-10 strings.
type PoolResponse struct {
	Pool        string `json:"pool"`
	Version     uint64 `json:"version"`
	FeeBps      uint64 `json:"fee_bps"` // parts per thousand
	Active      bool   `json:"active"`
	Reserve1    string `json:"reserve1"`
	Reserve2    string `json:"reserve2"`
	TotalShares string `json:"total_shares"`
}

// PortfolioResponse is one account's free balances and shares
type PortfolioResponse struct {
	Account string `json:"account"`
	Token1  string `json:"token1"`
	Token2  string `json:"token2"`
	Shares  string `json:"shares"`
}

// AccountResponse carries a freshly generated keypair (dev mode only)
type AccountResponse struct {
	Account    string `json:"account"`     // Base58 public key
	PrivateKey string `json:"private_key"` // Base58 64-byte private key
}

// FundRequest credits free balances to an account
type FundRequest struct {
	Account string `json:"account"`
	Amount1 string `json:"amount1"`
	Amount2 string `json:"amount2"`
}

// LiquidityRequest deposits free balances into the pool
type LiquidityRequest struct {
	Account string `json:"account"`
	Amount1 string `json:"amount1"`
	Amount2 string `json:"amount2"`
}

// LiquidityResponse reports the shares issued for a deposit
type LiquidityResponse struct {
	Shares string            `json:"shares"`
	Event  *models.PoolEvent `json:"event"`
}

// WithdrawRequest burns shares
type WithdrawRequest struct {
	Account string `json:"account"`
	Shares  string `json:"shares"`
}

// WithdrawResponse reports the token amounts released
type WithdrawResponse struct {
	Amount1 string            `json:"amount1"`
	Amount2 string            `json:"amount2"`
	Event   *models.PoolEvent `json:"event"`
}

// SwapRequest sells or buys against the pool.
// Mode is "exact_in" (default) or "exact_out". Amount is the input for
// exact_in and the output for exact_out. Limit is the minimum output or the
// maximum input; SlippageBps derives the limit from the current quote instead.
type SwapRequest struct {
	Account     string  `json:"account"`
	Direction   string  `json:"direction"` // "1to2" or "2to1"
	Mode        string  `json:"mode,omitempty"`
	Amount      string  `json:"amount"`
	Limit       string  `json:"limit,omitempty"`
	SlippageBps *uint16 `json:"slippage_bps,omitempty"`
}

// SwapResponse describes the executed swap
type SwapResponse struct {
	Direction string            `json:"direction"`
	AmountIn  string            `json:"amount_in"`
	AmountOut string            `json:"amount_out"`
	Event     *models.PoolEvent `json:"event"`
}

// QuoteResponse is a swap estimate against the current reserves
type QuoteResponse struct {
	Direction string `json:"direction"`
	Mode      string `json:"mode"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Version   uint64 `json:"version"` // state version the quote was computed on
}

// WithdrawQuoteResponse estimates the tokens released by burning shares
type WithdrawQuoteResponse struct {
	Shares  string `json:"shares"`
	Amount1 string `json:"amount1"`
	Amount2 string `json:"amount2"`
}

// EquivalentResponse reports the counterpart amount for a ratio-matched deposit
type EquivalentResponse struct {
	Amount1 string `json:"amount1"`
	Amount2 string `json:"amount2"`
}

// EventsResponse wraps a page of recent events
type EventsResponse struct {
	Items []*models.PoolEvent `json:"items"`
}

// FlagsResponse lists every pausable operation
type FlagsResponse struct {
	Items []*flags.Flag `json:"items"`
}

// FlagUpdateRequest pauses or resumes an operation
type FlagUpdateRequest struct {
	Paused bool   `json:"paused"`
	Reason string `json:"reason,omitempty"`
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about pool activity
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string             `json:"sql"`             // Generated SQL query
	Answer string             `json:"answer"`          // Natural language answer
	Kinds  []models.EventKind `json:"kinds,omitempty"` // Event kinds the question was read as being about
	Rows   int                `json:"rows"`            // Rows returned by the query
	TookMs int64              `json:"took_ms"`         // Execution time in milliseconds
}

// AISummaryResponse is the ledger view of the pool: its newest snapshot and
// per-kind activity over the window
type AISummaryResponse struct {
	Snapshot *ai.PoolSnapshot  `json:"snapshot"`
	Price    float64           `json:"price"` // token1 in token2
	Window   string            `json:"window"`
	Activity []ai.KindActivity `json:"activity"`
}
