package amm

import (
	"maps"

	"github.com/holiman/uint256"
)

// State is the serialisable form of a pool. Amounts are base-10 strings so
// the full 256-bit range survives JSON.
type State struct {
	FeeBps        uint64               `json:"fee_bps"`
	Reserve1      string               `json:"reserve1"`
	Reserve2      string               `json:"reserve2"`
	TotalShares   string               `json:"total_shares"`
	Token1Balance map[AccountID]string `json:"token1_balance"`
	Token2Balance map[AccountID]string `json:"token2_balance"`
	Shares        map[AccountID]string `json:"shares"`
}

// Export snapshots the pool.
func (p *Pool) Export() *State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return &State{
		FeeBps:        p.feeBps,
		Reserve1:      p.reserve1.Dec(),
		Reserve2:      p.reserve2.Dec(),
		TotalShares:   p.totalShares.Dec(),
		Token1Balance: exportBook(p.token1Balance),
		Token2Balance: exportBook(p.token2Balance),
		Shares:        exportBook(p.shares),
	}
}

// Restore hydrates a pool from a snapshot, rejecting snapshots that break the
// pool invariants.
func Restore(s *State) (*Pool, error) {
	if s == nil {
		return nil, newError(KindInvalidState, "nil state")
	}
	if s.FeeBps >= feeDenominator {
		return nil, newError(KindInvalidState, "fee %d is outside [0,%d)", s.FeeBps, feeDenominator)
	}

	p := New(s.FeeBps)
	var err error
	if p.reserve1, err = restoreAmount("reserve1", s.Reserve1); err != nil {
		return nil, err
	}
	if p.reserve2, err = restoreAmount("reserve2", s.Reserve2); err != nil {
		return nil, err
	}
	if p.totalShares, err = restoreAmount("total_shares", s.TotalShares); err != nil {
		return nil, err
	}
	if p.token1Balance, err = restoreBook("token1_balance", s.Token1Balance); err != nil {
		return nil, err
	}
	if p.token2Balance, err = restoreBook("token2_balance", s.Token2Balance); err != nil {
		return nil, err
	}
	if p.shares, err = restoreBook("shares", s.Shares); err != nil {
		return nil, err
	}

	if err := p.CheckInvariants(); err != nil {
		return nil, err
	}
	return p, nil
}

// Clone returns an independent copy of the pool.
func (p *Pool) Clone() *Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return &Pool{
		feeBps:        p.feeBps,
		reserve1:      p.reserve1,
		reserve2:      p.reserve2,
		totalShares:   p.totalShares,
		token1Balance: maps.Clone(p.token1Balance),
		token2Balance: maps.Clone(p.token2Balance),
		shares:        maps.Clone(p.shares),
	}
}

// CheckInvariants verifies that the pool is either empty or fully funded,
// that reserves and balances fit in AmountBits and that the share ledger sums
// to the total supply.
func (p *Pool) CheckInvariants() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	empty1, empty2, emptyShares := p.reserve1.IsZero(), p.reserve2.IsZero(), p.totalShares.IsZero()
	if empty1 != empty2 || empty1 != emptyShares {
		return newError(KindInvalidState, "reserves %s/%s with %s shares",
			p.reserve1.Dec(), p.reserve2.Dec(), p.totalShares.Dec())
	}

	if !fitsAmount(p.reserve1) || !fitsAmount(p.reserve2) {
		return newError(KindInvalidState, "reserves %s/%s exceed %d bits",
			p.reserve1.Dec(), p.reserve2.Dec(), AmountBits)
	}
	for _, book := range []map[AccountID]*uint256.Int{p.token1Balance, p.token2Balance} {
		for account, v := range book {
			if !fitsAmount(v) {
				return newError(KindInvalidState, "balance %s of %s exceeds %d bits", v.Dec(), account, AmountBits)
			}
		}
	}

	sum := zero()
	for account, s := range p.shares {
		var overflow bool
		if sum, overflow = new(uint256.Int).AddOverflow(sum, s); overflow {
			return newError(KindInvalidState, "share ledger overflows at %s", account)
		}
	}
	if !sum.Eq(p.totalShares) {
		return newError(KindInvalidState, "shares sum to %s, total is %s", sum.Dec(), p.totalShares.Dec())
	}
	return nil
}

func exportBook(book map[AccountID]*uint256.Int) map[AccountID]string {
	out := make(map[AccountID]string, len(book))
	for account, v := range book {
		out[account] = v.Dec()
	}
	return out
}

func restoreAmount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return zero(), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, newError(KindInvalidState, "%s: %v", field, err)
	}
	return v, nil
}

func restoreBook(field string, in map[AccountID]string) (map[AccountID]*uint256.Int, error) {
	book := make(map[AccountID]*uint256.Int, len(in))
	for account, s := range in {
		v, err := restoreAmount(field, s)
		if err != nil {
			return nil, err
		}
		book[account] = v
	}
	return book, nil
}
