// Package amm implements the accounting and pricing core of a two-token
// constant-product liquidity pool: free balances, reserves, pool shares and
// the fee-adjusted x*y=k quotes. It performs no I/O; callers own identity,
// persistence and event emission.
package amm

import (
	"sync"

	"github.com/holiman/uint256"
)

const (
	// feeDenominator expresses the fee in parts per thousand.
	feeDenominator = 1000

	sharePrecision = 1000

	// BootstrapShares is minted for the first deposit into an empty pool.
	BootstrapShares = 1000 * sharePrecision
)

// AccountID identifies a participant. The pool only uses it as a map key.
type AccountID string

// Pool is safe for concurrent use; every operation is a single critical
// section and either applies all of its effects or none.
type Pool struct {
	mu sync.RWMutex

	feeBps      uint64
	reserve1    *uint256.Int
	reserve2    *uint256.Int
	totalShares *uint256.Int

	// values are never mutated in place, only replaced, so a shallow map
	// copy is a deep copy
	token1Balance map[AccountID]*uint256.Int
	token2Balance map[AccountID]*uint256.Int
	shares        map[AccountID]*uint256.Int
}

// Portfolio is an account's view of the pool.
type Portfolio struct {
	Token1 *uint256.Int
	Token2 *uint256.Int
	Shares *uint256.Int
}

// Summary is the pool-wide view.
type Summary struct {
	Reserve1    *uint256.Int
	Reserve2    *uint256.Int
	TotalShares *uint256.Int
	FeeBps      uint64
}

// New creates an empty pool. A fee of 1000 or more is treated as 0.
func New(feeBps uint64) *Pool {
	if feeBps >= feeDenominator {
		feeBps = 0
	}
	return &Pool{
		feeBps:        feeBps,
		reserve1:      zero(),
		reserve2:      zero(),
		totalShares:   zero(),
		token1Balance: make(map[AccountID]*uint256.Int),
		token2Balance: make(map[AccountID]*uint256.Int),
		shares:        make(map[AccountID]*uint256.Int),
	}
}

// FeeBps returns the trading fee in parts per thousand.
func (p *Pool) FeeBps() uint64 {
	return p.feeBps
}

// Active reports whether the pool holds liquidity.
func (p *Pool) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.totalShares.IsZero()
}

// Fund credits free balances out of band. Zero amounts are no-ops for their
// side. A credit that would lift either balance above MaxAmount is rejected
// and nothing is credited.
func (p *Pool) Fund(account AccountID, amount1, amount2 *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkRoom(p.token1Balance[account], amount1, "token1 balance"); err != nil {
		return err
	}
	if err := checkRoom(p.token2Balance[account], amount2, "token2 balance"); err != nil {
		return err
	}
	credit(p.token1Balance, account, clone(amount1))
	credit(p.token2Balance, account, clone(amount2))
	return nil
}

// ProvideLiquidity locks amount1/amount2 of the caller's free balances into
// the pool and returns the shares issued. Deposits into an active pool must
// match the current reserve ratio exactly.
func (p *Pool) ProvideLiquidity(account AccountID, amount1, amount2 *uint256.Int) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkSpend(p.token1Balance, account, amount1, "token1"); err != nil {
		return nil, err
	}
	// a zero side is ZeroAmount even on an active pool, so no deposit can
	// fund one reserve alone
	if err := checkSpend(p.token2Balance, account, amount2, "token2"); err != nil {
		return nil, err
	}
	if err := checkRoom(p.reserve1, amount1, "reserve1"); err != nil {
		return nil, err
	}
	if err := checkRoom(p.reserve2, amount2, "reserve2"); err != nil {
		return nil, err
	}

	var issued *uint256.Int
	if p.totalShares.IsZero() {
		issued = uint256.NewInt(BootstrapShares)
	} else {
		share1 := mulDiv(p.totalShares, amount1, p.reserve1)
		share2 := mulDiv(p.totalShares, amount2, p.reserve2)
		if !share1.Eq(share2) {
			return nil, newError(KindNonEquivalentValue,
				"deposit %s/%s does not match reserves %s/%s",
				amount1.Dec(), amount2.Dec(), p.reserve1.Dec(), p.reserve2.Dec())
		}
		if share1.IsZero() {
			return nil, newError(KindThresholdNotReached,
				"deposit %s/%s mints no shares", amount1.Dec(), amount2.Dec())
		}
		issued = share1
	}

	debit(p.token1Balance, account, amount1)
	debit(p.token2Balance, account, amount2)
	p.reserve1 = addAmount(p.reserve1, amount1)
	p.reserve2 = addAmount(p.reserve2, amount2)
	p.totalShares = addChecked(p.totalShares, issued)
	p.shares[account] = addChecked(clone(p.shares[account]), issued)

	return clone(issued), nil
}

// EstimateWithdraw returns the token amounts released by burning shares.
func (p *Pool) EstimateWithdraw(shares *uint256.Int) (amount1, amount2 *uint256.Int, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.withdrawEstimate(shares)
}

func (p *Pool) withdrawEstimate(shares *uint256.Int) (amount1, amount2 *uint256.Int, err error) {
	if err := p.requireLiquidity(); err != nil {
		return nil, nil, err
	}
	if shares.Gt(p.totalShares) {
		return nil, nil, newError(KindInvalidShare,
			"%s exceeds the %s shares issued", shares.Dec(), p.totalShares.Dec())
	}
	amount1 = mulDiv(shares, p.reserve1, p.totalShares)
	amount2 = mulDiv(shares, p.reserve2, p.totalShares)
	return amount1, amount2, nil
}

// Withdraw burns the caller's shares and credits the released reserves to
// the caller's free balances. Burning the last share empties the pool.
func (p *Pool) Withdraw(account AccountID, shares *uint256.Int) (amount1, amount2 *uint256.Int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkSpend(p.shares, account, shares, "shares"); err != nil {
		return nil, nil, err
	}
	amount1, amount2, err = p.withdrawEstimate(shares)
	if err != nil {
		return nil, nil, err
	}
	if err := checkRoom(p.token1Balance[account], amount1, "token1 balance"); err != nil {
		return nil, nil, err
	}
	if err := checkRoom(p.token2Balance[account], amount2, "token2 balance"); err != nil {
		return nil, nil, err
	}

	debit(p.shares, account, shares)
	p.totalShares = subChecked(p.totalShares, shares)
	p.reserve1 = subChecked(p.reserve1, amount1)
	p.reserve2 = subChecked(p.reserve2, amount2)
	credit(p.token1Balance, account, amount1)
	credit(p.token2Balance, account, amount2)

	return clone(amount1), clone(amount2), nil
}

// Portfolio returns an account's free balances and shares, zero when unknown.
func (p *Pool) Portfolio(account AccountID) Portfolio {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Portfolio{
		Token1: clone(p.token1Balance[account]),
		Token2: clone(p.token2Balance[account]),
		Shares: clone(p.shares[account]),
	}
}

// Summary returns reserves, total shares and the fee.
func (p *Pool) Summary() Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Summary{
		Reserve1:    clone(p.reserve1),
		Reserve2:    clone(p.reserve2),
		TotalShares: clone(p.totalShares),
		FeeBps:      p.feeBps,
	}
}

func (p *Pool) requireLiquidity() error {
	if p.reserve1.IsZero() || p.reserve2.IsZero() {
		return newError(KindZeroLiquidity, "pool has no liquidity")
	}
	return nil
}

// checkSpend validates that a positive amount is covered by the account's
// balance in book.
func checkSpend(book map[AccountID]*uint256.Int, account AccountID, amount *uint256.Int, what string) error {
	if amount == nil || amount.IsZero() {
		return newError(KindZeroAmount, "%s amount cannot be zero", what)
	}
	balance := book[account]
	if balance == nil || amount.Gt(balance) {
		return newError(KindInsufficientBalance,
			"%s amount %s exceeds balance %s", what, amount.Dec(), clone(balance).Dec())
	}
	return nil
}

// credit adds to a token balance; callers check room first.
func credit(book map[AccountID]*uint256.Int, account AccountID, amount *uint256.Int) {
	book[account] = addAmount(clone(book[account]), amount)
}

func debit(book map[AccountID]*uint256.Int, account AccountID, amount *uint256.Int) {
	book[account] = subChecked(clone(book[account]), amount)
}
