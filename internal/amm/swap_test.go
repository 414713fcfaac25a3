package amm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolK(p *Pool) *uint256.Int {
	s := p.Summary()
	return mulChecked(s.Reserve1, s.Reserve2)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("1to2")
	require.NoError(t, err)
	assert.Equal(t, Token1ToToken2, d)
	assert.Equal(t, "1to2", d.String())

	d, err = ParseDirection("2to1")
	require.NoError(t, err)
	assert.Equal(t, Token2ToToken1, d)
	assert.Equal(t, "2to1", d.String())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
	assert.Equal(t, "Direction(9)", Direction(9).String())
}

func TestEstimateSwap_InvalidDirection(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 100)

	_, err := p.EstimateSwap(Direction(9), u(1))
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = p.EstimateSwapExactOut(0, u(1))
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = p.Swap(alice, Direction(9), u(1), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEstimateSwap_ExactIn(t *testing.T) {
	tests := []struct {
		name   string
		fee    uint64
		r1, r2 uint64
		dir    Direction
		in     uint64
		want   uint64
	}{
		{"no fee", 0, 100, 100, Token1ToToken2, 10, 10},
		{"fee grosses input down", 3, 1000, 1000, Token1ToToken2, 100, 91},
		{"truncation drift", 3, 1000, 1000, Token1ToToken2, 101, 91},
		{"reverse direction", 0, 100, 200, Token2ToToken1, 20, 10},
		{"fee eats dust", 3, 1000, 1000, Token1ToToken2, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFundedPool(t, tt.fee, tt.r1, tt.r2, tt.r1, tt.r2)
			out, err := p.EstimateSwap(tt.dir, u(tt.in))
			require.NoError(t, err)
			assert.Equal(t, u(tt.want), out)
			assertSummary(t, p, tt.r1, tt.r2, BootstrapShares)
		})
	}
}

func TestEstimateSwap_NeverDrainsReserve(t *testing.T) {
	p := newFundedPool(t, 0, 100, 100, 100, 100)

	huge, err := ParseAmount("1000000000000000000000000000000")
	require.NoError(t, err)
	out, err := p.EstimateToken2ForToken1(huge)
	require.NoError(t, err)
	assert.Equal(t, u(99), out)
}

func TestEstimateSwap_ExactOut(t *testing.T) {
	p := newFundedPool(t, 3, 1000, 1000, 1000, 1000)

	in, err := p.EstimateToken1ForToken2(u(91))
	require.NoError(t, err)
	assert.Equal(t, u(100), in)

	// 101 in also buys 91 out, so exact-out is only an approximate inverse
	out, err := p.EstimateToken2ForToken1(u(101))
	require.NoError(t, err)
	assert.Equal(t, u(91), out)
	assert.False(t, in.Eq(u(101)))
}

func TestEstimateSwapExactOut_Boundary(t *testing.T) {
	p := newFundedPool(t, 0, 20_000, 1000, 100, 100)

	_, err := p.EstimateToken1ForToken2(u(100))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	_, err = p.EstimateToken1ForToken2(u(101))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	in, err := p.EstimateToken1ForToken2(u(99))
	require.NoError(t, err)
	assert.Equal(t, u(9900), in)

	res, err := p.SwapExactOut(alice, Token1ToToken2, u(99), nil)
	require.NoError(t, err)
	assert.Equal(t, u(9900), res.AmountIn)
	assert.Equal(t, u(99), res.AmountOut)
	assertSummary(t, p, 10_000, 1, BootstrapShares)
	assertPortfolio(t, p, alice, 10_000, 999, BootstrapShares)

	withFee := newFundedPool(t, 3, 20_000, 1000, 100, 100)
	in, err = withFee.EstimateToken1ForToken2(u(99))
	require.NoError(t, err)
	assert.Equal(t, u(9929), in)
}

func TestEstimateSwap_Monotonic(t *testing.T) {
	p := newFundedPool(t, 3, 1000, 1000, 1000, 1000)

	prevOut := zero()
	for in := uint64(1); in <= 2000; in++ {
		out, err := p.EstimateToken2ForToken1(u(in))
		require.NoError(t, err)
		require.False(t, out.Lt(prevOut), "output dropped at input %d", in)
		require.True(t, out.Lt(u(1000)))
		prevOut = out
	}

	prevIn := zero()
	for out := uint64(1); out < 1000; out++ {
		in, err := p.EstimateToken1ForToken2(u(out))
		require.NoError(t, err)
		require.False(t, in.Lt(prevIn), "input dropped at output %d", out)
		prevIn = in
	}
}

func TestEstimateSwap_HigherFeeQuotesLess(t *testing.T) {
	var prev *uint256.Int
	for _, fee := range []uint64{0, 3, 30, 300} {
		p := newFundedPool(t, fee, 10_000, 10_000, 10_000, 10_000)
		out, err := p.EstimateToken2ForToken1(u(1000))
		require.NoError(t, err)
		if prev != nil {
			assert.False(t, out.Gt(prev), "fee %d quoted more than a lower fee", fee)
		}
		prev = out
	}
}

func TestSwap_ExactIn(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 100)
	before := poolK(p)

	// 110*90 < 10000, so one unit less than the quote is released
	res, err := p.Swap(alice, Token1ToToken2, u(10), nil)
	require.NoError(t, err)
	assert.Equal(t, Token1ToToken2, res.Direction)
	assert.Equal(t, u(10), res.AmountIn)
	assert.Equal(t, u(9), res.AmountOut)
	assert.Equal(t, u(110), res.Reserve1)
	assert.Equal(t, u(91), res.Reserve2)
	assertPortfolio(t, p, alice, 890, 909, BootstrapShares)
	assert.False(t, poolK(p).Lt(before))
}

func TestSwap_FeeAccruesToPool(t *testing.T) {
	p := newFundedPool(t, 3, 2000, 2000, 1000, 1000)
	before := poolK(p)

	res, err := p.Swap(alice, Token1ToToken2, u(100), nil)
	require.NoError(t, err)
	assert.Equal(t, u(90), res.AmountOut)
	assertSummary(t, p, 1100, 910, BootstrapShares)
	assert.True(t, poolK(p).Gt(before))

	a1, a2, err := p.EstimateWithdraw(u(BootstrapShares))
	require.NoError(t, err)
	assert.Equal(t, u(1100), a1)
	assert.Equal(t, u(910), a2)
}

func TestSwap_ReverseDirection(t *testing.T) {
	p := newFundedPool(t, 0, 1000, 1000, 100, 200)

	res, err := p.Swap(alice, Token2ToToken1, u(20), nil)
	require.NoError(t, err)
	assert.Equal(t, u(9), res.AmountOut)
	assertSummary(t, p, 91, 220, BootstrapShares)
	assertPortfolio(t, p, alice, 909, 780, BootstrapShares)
}

func TestSwap_Rejections(t *testing.T) {
	p := newFundedPool(t, 3, 2000, 2000, 1000, 1000)
	p.Fund(bob, u(5), u(0))

	_, err := p.Swap(alice, Token1ToToken2, u(0), nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = p.Swap(bob, Token1ToToken2, u(6), nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = p.Swap(bob, Token2ToToken1, u(1), nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = p.Swap(alice, Token1ToToken2, u(1), nil)
	assert.ErrorIs(t, err, ErrThresholdNotReached)

	_, err = p.Swap(alice, Token1ToToken2, u(100), u(91))
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	assertSummary(t, p, 1000, 1000, BootstrapShares)
	assertPortfolio(t, p, alice, 1000, 1000, BootstrapShares)
	assertPortfolio(t, p, bob, 5, 0, 0)

	res, err := p.Swap(alice, Token1ToToken2, u(100), u(90))
	require.NoError(t, err)
	assert.Equal(t, u(90), res.AmountOut)
}

func TestSwapExactOut(t *testing.T) {
	p := newFundedPool(t, 0, 2000, 2000, 1000, 1000)
	before := poolK(p)

	quoted, err := p.EstimateToken1ForToken2(u(91))
	require.NoError(t, err)
	assert.Equal(t, u(100), quoted)

	// 1100*909 < 1e6, so the caller pays one unit above the quote
	_, err = p.SwapExactOut(alice, Token1ToToken2, u(91), u(100))
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	assertSummary(t, p, 1000, 1000, BootstrapShares)

	res, err := p.SwapExactOut(alice, Token1ToToken2, u(91), u(101))
	require.NoError(t, err)
	assert.Equal(t, u(101), res.AmountIn)
	assert.Equal(t, u(91), res.AmountOut)
	assertSummary(t, p, 1101, 909, BootstrapShares)
	assertPortfolio(t, p, alice, 899, 1091, BootstrapShares)
	assert.False(t, poolK(p).Lt(before))
}

func TestSwapExactOut_Rejections(t *testing.T) {
	p := newFundedPool(t, 0, 1050, 1000, 1000, 1000)

	_, err := p.SwapExactOut(alice, Token1ToToken2, u(0), nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = p.SwapExactOut(alice, Token1ToToken2, u(1000), nil)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	// costs 101 of token1, alice has 50
	_, err = p.SwapExactOut(alice, Token1ToToken2, u(91), nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assertSummary(t, p, 1000, 1000, BootstrapShares)
	assertPortfolio(t, p, alice, 50, 0, BootstrapShares)
}
