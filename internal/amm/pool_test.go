package amm

import (
	"errors"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice AccountID = "alice"
	bob   AccountID = "bob"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// newFundedPool creates a pool where alice deposited r1/r2 out of a free
// balance of free1/free2.
func newFundedPool(t *testing.T, fee, free1, free2, r1, r2 uint64) *Pool {
	t.Helper()
	p := New(fee)
	p.Fund(alice, u(free1), u(free2))
	issued, err := p.ProvideLiquidity(alice, u(r1), u(r2))
	require.NoError(t, err)
	require.Equal(t, u(BootstrapShares), issued)
	return p
}

func assertSummary(t *testing.T, p *Pool, r1, r2, total uint64) {
	t.Helper()
	s := p.Summary()
	assert.Equal(t, u(r1), s.Reserve1, "reserve1")
	assert.Equal(t, u(r2), s.Reserve2, "reserve2")
	assert.Equal(t, u(total), s.TotalShares, "total shares")
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	var ammErr *Error
	require.True(t, errors.As(err, &ammErr), "got %v", err)
	assert.Equal(t, want, ammErr.Kind)
}

func assertPortfolio(t *testing.T, p *Pool, account AccountID, t1, t2, shares uint64) {
	t.Helper()
	pf := p.Portfolio(account)
	assert.Equal(t, u(t1), pf.Token1, "token1")
	assert.Equal(t, u(t2), pf.Token2, "token2")
	assert.Equal(t, u(shares), pf.Shares, "shares")
}

func TestNew_FeeClamp(t *testing.T) {
	assert.Equal(t, uint64(0), New(1000).FeeBps())
	assert.Equal(t, uint64(0), New(5000).FeeBps())
	assert.Equal(t, uint64(999), New(999).FeeBps())
	assert.Equal(t, uint64(3), New(3).FeeBps())

	s := New(3).Summary()
	assert.True(t, s.Reserve1.IsZero())
	assert.True(t, s.Reserve2.IsZero())
	assert.True(t, s.TotalShares.IsZero())
	assert.Equal(t, uint64(3), s.FeeBps)
}

func TestFund(t *testing.T) {
	p := New(0)
	p.Fund(alice, u(10), u(20))
	assertPortfolio(t, p, alice, 10, 20, 0)

	p.Fund(alice, u(5), u(0))
	assertPortfolio(t, p, alice, 15, 20, 0)

	p.Fund(bob, u(0), u(0))
	assertPortfolio(t, p, bob, 0, 0, 0)
	assertPortfolio(t, p, "nobody", 0, 0, 0)
}

func TestReferenceScenario(t *testing.T) {
	p := New(0)
	p.Fund(alice, u(1000), u(1000))

	issued, err := p.ProvideLiquidity(alice, u(100), u(100))
	require.NoError(t, err)
	assert.Equal(t, u(BootstrapShares), issued)
	assertSummary(t, p, 100, 100, BootstrapShares)
	assertPortfolio(t, p, alice, 900, 900, BootstrapShares)

	p.Fund(bob, u(0), u(0))

	// k = 10000, new reserve1 = 110, new reserve2 = 90 (90.9 truncated)
	out, err := p.EstimateToken2ForToken1(u(10))
	require.NoError(t, err)
	assert.Equal(t, u(10), out)
	assertSummary(t, p, 100, 100, BootstrapShares)
}

func TestProvideLiquidity_Bootstrap(t *testing.T) {
	p := New(3)
	p.Fund(alice, u(500), u(800))

	issued, err := p.ProvideLiquidity(alice, u(200), u(300))
	require.NoError(t, err)
	assert.Equal(t, u(BootstrapShares), issued)
	assertSummary(t, p, 200, 300, BootstrapShares)
	assertPortfolio(t, p, alice, 300, 500, BootstrapShares)
	assert.True(t, p.Active())
}

func TestProvideLiquidity_RatioEnforced(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 200)
	p.Fund(bob, u(100), u(100))

	_, err := p.ProvideLiquidity(bob, u(10), u(10))
	assert.ErrorIs(t, err, ErrNonEquivalentValue)
	assertSummary(t, p, 100, 200, BootstrapShares)
	assertPortfolio(t, p, bob, 100, 100, 0)

	need2, err := p.EquivalentToken2For(u(10))
	require.NoError(t, err)
	assert.Equal(t, u(20), need2)
	need1, err := p.EquivalentToken1For(u(20))
	require.NoError(t, err)
	assert.Equal(t, u(10), need1)

	issued, err := p.ProvideLiquidity(bob, u(10), need2)
	require.NoError(t, err)
	assert.Equal(t, u(100_000), issued)
	assertSummary(t, p, 110, 220, 1_100_000)
	assertPortfolio(t, p, bob, 90, 80, 100_000)
}

func TestProvideLiquidity_ThresholdNotReached(t *testing.T) {
	p := newFundedPool(t, 0, 3_000_000, 3_000_000, 2_000_000, 2_000_000)

	_, err := p.ProvideLiquidity(alice, u(1), u(1))
	assert.ErrorIs(t, err, ErrThresholdNotReached)
	assertSummary(t, p, 2_000_000, 2_000_000, BootstrapShares)
}

func TestProvideLiquidity_Validation(t *testing.T) {
	p := New(0)
	p.Fund(alice, u(1000), u(1000))

	tests := []struct {
		name    string
		account AccountID
		a1, a2  uint64
		want    error
	}{
		{"zero token1", alice, 0, 10, ErrZeroAmount},
		{"zero token2", alice, 10, 0, ErrZeroAmount},
		{"token1 above balance", alice, 1001, 10, ErrInsufficientBalance},
		{"token2 above balance", alice, 10, 1001, ErrInsufficientBalance},
		{"unknown account", bob, 1, 1, ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ProvideLiquidity(tt.account, u(tt.a1), u(tt.a2))
			assert.ErrorIs(t, err, tt.want)
			assertSummary(t, p, 0, 0, 0)
			assertPortfolio(t, p, alice, 1000, 1000, 0)
		})
	}
}

func TestProvideLiquidity_ActiveZeroSide(t *testing.T) {
	p := newFundedPool(t, 3, 1000, 1000, 100, 200)

	// a zero side is rejected before the ratio check
	_, err := p.ProvideLiquidity(alice, u(10), u(0))
	assertKind(t, err, KindZeroAmount)
	_, err = p.ProvideLiquidity(alice, u(0), u(20))
	assertKind(t, err, KindZeroAmount)

	assertSummary(t, p, 100, 200, BootstrapShares)
	assertPortfolio(t, p, alice, 900, 800, BootstrapShares)
}

func TestWithdraw_InverseOfDeposit(t *testing.T) {
	p := newFundedPool(t, 3, 1000, 1000, 100, 100)

	a1, a2, err := p.EstimateWithdraw(u(BootstrapShares))
	require.NoError(t, err)
	assert.Equal(t, u(100), a1)
	assert.Equal(t, u(100), a2)

	a1, a2, err = p.Withdraw(alice, u(BootstrapShares))
	require.NoError(t, err)
	assert.Equal(t, u(100), a1)
	assert.Equal(t, u(100), a2)

	assertSummary(t, p, 0, 0, 0)
	assertPortfolio(t, p, alice, 1000, 1000, 0)
	assert.False(t, p.Active())

	_, err = p.EstimateToken2ForToken1(u(1))
	assert.ErrorIs(t, err, ErrZeroLiquidity)
}

func TestWithdraw_Partial(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 200)

	a1, a2, err := p.Withdraw(alice, u(250_000))
	require.NoError(t, err)
	assert.Equal(t, u(25), a1)
	assert.Equal(t, u(50), a2)
	assertSummary(t, p, 75, 150, 750_000)
	assertPortfolio(t, p, alice, 925, 850, 750_000)
	require.NoError(t, p.CheckInvariants())
}

func TestWithdraw_Validation(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 100)

	_, _, err := p.Withdraw(alice, u(0))
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, _, err = p.Withdraw(alice, u(BootstrapShares+1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, _, err = p.Withdraw(bob, u(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, _, err = p.EstimateWithdraw(u(BootstrapShares + 1))
	assert.ErrorIs(t, err, ErrInvalidShare)

	assertSummary(t, p, 100, 100, BootstrapShares)
}

func TestEmptyPool_RequiresLiquidity(t *testing.T) {
	p := New(3)
	p.Fund(alice, u(100), u(100))

	_, err := p.EstimateToken2ForToken1(u(1))
	assert.ErrorIs(t, err, ErrZeroLiquidity)
	_, err = p.EstimateToken1ForToken2(u(1))
	assert.ErrorIs(t, err, ErrZeroLiquidity)
	_, err = p.EquivalentToken1For(u(1))
	assert.ErrorIs(t, err, ErrZeroLiquidity)
	_, err = p.EquivalentToken2For(u(1))
	assert.ErrorIs(t, err, ErrZeroLiquidity)
	_, _, err = p.EstimateWithdraw(u(0))
	assert.ErrorIs(t, err, ErrZeroLiquidity)
	_, err = p.Swap(alice, Token1ToToken2, u(1), nil)
	assert.ErrorIs(t, err, ErrZeroLiquidity)
	_, err = p.SwapExactOut(alice, Token1ToToken2, u(1), nil)
	assert.ErrorIs(t, err, ErrZeroLiquidity)
}

func TestError_Kinds(t *testing.T) {
	err := newError(KindSlippageExceeded, "output %d below %d", 1, 2)
	assert.True(t, errors.Is(err, ErrSlippageExceeded))
	assert.False(t, errors.Is(err, ErrZeroAmount))
	assert.Equal(t, "amm: SlippageExceeded: output 1 below 2", err.Error())
	assert.Equal(t, "amm: ZeroLiquidity", ErrZeroLiquidity.Error())

	var ammErr *Error
	require.True(t, errors.As(err, &ammErr))
	assert.Equal(t, KindSlippageExceeded, ammErr.Kind)
}

func TestArithmetic_ContractViolation(t *testing.T) {
	maxInt := new(uint256.Int).SetAllOne()

	assert.PanicsWithValue(t, ContractViolation{Op: "+", X: maxInt.Dec(), Y: "1"}, func() {
		addChecked(maxInt, u(1))
	})
	assert.PanicsWithValue(t, ContractViolation{Op: "+", X: MaxAmount.Dec(), Y: "1"}, func() {
		addAmount(MaxAmount, u(1))
	})
	assert.Panics(t, func() { divChecked(u(1), u(0)) })
	assert.Panics(t, func() { mulDiv(u(1), u(1), u(0)) })
	assert.Panics(t, func() { subChecked(u(1), u(2)) })
	assert.Panics(t, func() { mulChecked(maxInt, u(2)) })

	// the product may exceed 256 bits as long as the quotient does not
	assert.Equal(t, maxInt, mulDiv(maxInt, maxInt, maxInt))
}

func TestParseAmount_Width(t *testing.T) {
	v, err := ParseAmount(MaxAmount.Dec())
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, v)
	assert.Equal(t, AmountBits, v.BitLen())

	over := new(uint256.Int).AddUint64(MaxAmount, 1)
	_, err = ParseAmount(over.Dec())
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = ParseAmount("12abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAmountOverflow)
}

func TestFund_AmountCap(t *testing.T) {
	p := New(3)
	require.NoError(t, p.Fund(alice, MaxAmount, MaxAmount))

	err := p.Fund(alice, u(1), u(0))
	assertKind(t, err, KindAmountOverflow)
	err = p.Fund(alice, u(0), u(1))
	assertKind(t, err, KindAmountOverflow)

	// a rejected credit leaves both sides untouched
	got := p.Portfolio(alice)
	assert.Equal(t, MaxAmount, got.Token1)
	assert.Equal(t, MaxAmount, got.Token2)

	wide := new(uint256.Int).Lsh(u(1), 200)
	assertKind(t, p.Fund(bob, wide, u(1)), KindAmountOverflow)
	assertPortfolio(t, p, bob, 0, 0, 0)
}

func TestPool_SwapsAtAmountCap(t *testing.T) {
	p := New(3)
	require.NoError(t, p.Fund(alice, MaxAmount, MaxAmount))
	_, err := p.ProvideLiquidity(alice, MaxAmount, MaxAmount)
	require.NoError(t, err)
	require.NoError(t, p.CheckInvariants())

	// quotes still work on full reserves
	require.NoError(t, p.Fund(bob, u(1000), u(1000)))
	out, err := p.EstimateSwap(Token1ToToken2, u(1000))
	require.NoError(t, err)
	assert.Equal(t, u(997), out)

	// but nothing more can enter either side
	_, err = p.Swap(bob, Token1ToToken2, u(1000), nil)
	assertKind(t, err, KindAmountOverflow)
	_, err = p.SwapExactOut(bob, Token2ToToken1, u(10), nil)
	assertKind(t, err, KindAmountOverflow)
	assertPortfolio(t, p, bob, 1000, 1000, 0)

	// withdrawing half the supply makes room again
	_, _, err = p.Withdraw(alice, u(BootstrapShares/2))
	require.NoError(t, err)
	res, err := p.Swap(bob, Token1ToToken2, u(1000), nil)
	require.NoError(t, err)
	assert.False(t, res.AmountOut.IsZero())
	require.NoError(t, p.CheckInvariants())
}

func TestWithdraw_AmountCap(t *testing.T) {
	p := New(3)
	require.NoError(t, p.Fund(alice, MaxAmount, MaxAmount))
	_, err := p.ProvideLiquidity(alice, MaxAmount, MaxAmount)
	require.NoError(t, err)
	require.NoError(t, p.Fund(alice, MaxAmount, MaxAmount))

	_, _, err = p.Withdraw(alice, u(BootstrapShares/2))
	assertKind(t, err, KindAmountOverflow)

	got := p.Portfolio(alice)
	assert.Equal(t, MaxAmount, got.Token1)
	assert.Equal(t, u(BootstrapShares), got.Shares)
	assert.Equal(t, MaxAmount, p.Summary().Reserve1)
}

func TestPool_LargeReservesSwap(t *testing.T) {
	half := new(uint256.Int).Rsh(MaxAmount, 1)
	p := New(3)
	require.NoError(t, p.Fund(alice, half, half))
	_, err := p.ProvideLiquidity(alice, half, half)
	require.NoError(t, err)

	require.NoError(t, p.Fund(bob, half, u(0)))
	est, err := p.EstimateToken2ForToken1(half)
	require.NoError(t, err)
	res, err := p.Swap(bob, Token1ToToken2, half, nil)
	require.NoError(t, err)
	assert.False(t, res.AmountOut.Gt(est))
	assert.Equal(t, new(uint256.Int).SubUint64(MaxAmount, 1), res.Reserve1)
	require.NoError(t, p.CheckInvariants())

	// a full-width input reserve refuses further token1 without panicking
	_, err = p.EstimateSwap(Token1ToToken2, MaxAmount)
	require.NoError(t, err)
	require.NoError(t, p.Fund(bob, u(2), u(0)))
	_, err = p.Swap(bob, Token1ToToken2, u(2), nil)
	assertKind(t, err, KindAmountOverflow)

	// buying nearly all token1 back needs an input wider than AmountBits
	r := p.Summary()
	_, err = p.EstimateSwapExactOut(Token2ToToken1, new(uint256.Int).SubUint64(r.Reserve1, 1))
	assertKind(t, err, KindAmountOverflow)

	wide := new(uint256.Int).Lsh(u(1), 200)
	_, err = p.EstimateSwap(Token2ToToken1, wide)
	assertKind(t, err, KindAmountOverflow)
}

func TestPool_ConcurrentAccess(t *testing.T) {
	p := newFundedPool(t, 3, 1_000_000, 1_000_000, 100_000, 100_000)

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				p.Fund(bob, u(1), u(2))
				_, err := p.EstimateToken2ForToken1(u(10))
				assert.NoError(t, err)
				_ = p.Summary()
			}
		}()
	}
	wg.Wait()

	assertPortfolio(t, p, bob, workers*rounds, 2*workers*rounds, 0)
	require.NoError(t, p.CheckInvariants())
}
