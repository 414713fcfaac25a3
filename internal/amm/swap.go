package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Direction selects which token is sold into the pool.
type Direction uint8

const (
	Token1ToToken2 Direction = iota + 1
	Token2ToToken1
)

func (d Direction) String() string {
	switch d {
	case Token1ToToken2:
		return "1to2"
	case Token2ToToken1:
		return "2to1"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ParseDirection accepts "1to2" or "2to1".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "1to2":
		return Token1ToToken2, nil
	case "2to1":
		return Token2ToToken1, nil
	default:
		return 0, fmt.Errorf("unknown swap direction %q", s)
	}
}

func (d Direction) valid() bool {
	return d == Token1ToToken2 || d == Token2ToToken1
}

func (d Direction) inputToken() string {
	if d == Token2ToToken1 {
		return "token2"
	}
	return "token1"
}

// SwapResult describes an executed swap and the reserves it left behind.
type SwapResult struct {
	Direction Direction
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Reserve1  *uint256.Int
	Reserve2  *uint256.Int
}

// EstimateToken2ForToken1 quotes the token2 received for selling amount1In
// of token1.
func (p *Pool) EstimateToken2ForToken1(amount1In *uint256.Int) (*uint256.Int, error) {
	return p.EstimateSwap(Token1ToToken2, amount1In)
}

// EstimateToken1ForToken2 quotes the token1 input required to receive
// exactly amount2Out of token2.
func (p *Pool) EstimateToken1ForToken2(amount2Out *uint256.Int) (*uint256.Int, error) {
	return p.EstimateSwapExactOut(Token1ToToken2, amount2Out)
}

// EstimateSwap quotes an exact-input swap in either direction.
func (p *Pool) EstimateSwap(dir Direction, amountIn *uint256.Int) (*uint256.Int, error) {
	if !dir.valid() {
		return nil, newError(KindInvalidState, "unknown swap direction %d", dir)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.requireLiquidity(); err != nil {
		return nil, err
	}
	if err := checkAmount(amountIn, dir.inputToken()); err != nil {
		return nil, err
	}
	reserveIn, reserveOut := p.reservesFor(dir)
	return p.quoteExactIn(reserveIn, reserveOut, amountIn), nil
}

// EstimateSwapExactOut quotes the input for an exact-output swap in either
// direction.
func (p *Pool) EstimateSwapExactOut(dir Direction, amountOut *uint256.Int) (*uint256.Int, error) {
	if !dir.valid() {
		return nil, newError(KindInvalidState, "unknown swap direction %d", dir)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.requireLiquidity(); err != nil {
		return nil, err
	}
	if err := checkAmount(amountOut, "output"); err != nil {
		return nil, err
	}
	reserveIn, reserveOut := p.reservesFor(dir)
	return p.quoteExactOut(reserveIn, reserveOut, amountOut)
}

// EquivalentToken1For returns the token1 matching amount2 at the deposit
// ratio. No fee applies.
func (p *Pool) EquivalentToken1For(amount2 *uint256.Int) (*uint256.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.requireLiquidity(); err != nil {
		return nil, err
	}
	return mulDiv(p.reserve1, amount2, p.reserve2), nil
}

// EquivalentToken2For returns the token2 matching amount1 at the deposit
// ratio. No fee applies.
func (p *Pool) EquivalentToken2For(amount1 *uint256.Int) (*uint256.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.requireLiquidity(); err != nil {
		return nil, err
	}
	return mulDiv(p.reserve2, amount1, p.reserve1), nil
}

// Swap sells amountIn of the input token from the caller's free balance.
// The whole input, fee included, stays in the pool. A nil minOut disables
// the slippage check.
func (p *Pool) Swap(account AccountID, dir Direction, amountIn, minOut *uint256.Int) (SwapResult, error) {
	if !dir.valid() {
		return SwapResult{}, newError(KindInvalidState, "unknown swap direction %d", dir)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireLiquidity(); err != nil {
		return SwapResult{}, err
	}
	inBook, _ := p.booksFor(dir)
	if err := checkSpend(inBook, account, amountIn, dir.inputToken()); err != nil {
		return SwapResult{}, err
	}

	reserveIn, reserveOut := p.reservesFor(dir)
	if err := checkRoom(reserveIn, amountIn, "input reserve"); err != nil {
		return SwapResult{}, err
	}
	out := p.quoteExactIn(reserveIn, reserveOut, amountIn)

	// truncation in k/newIn can leave the product one step short
	k := mulChecked(reserveIn, reserveOut)
	newIn := addChecked(reserveIn, amountIn)
	if !out.IsZero() && mulChecked(newIn, subChecked(reserveOut, out)).Lt(k) {
		out = subChecked(out, one)
	}
	if out.IsZero() {
		return SwapResult{}, newError(KindThresholdNotReached,
			"selling %s %s releases nothing", amountIn.Dec(), dir.inputToken())
	}
	if minOut != nil && out.Lt(minOut) {
		return SwapResult{}, newError(KindSlippageExceeded,
			"output %s is below minimum %s", out.Dec(), minOut.Dec())
	}
	_, outBook := p.booksFor(dir)
	if err := checkRoom(outBook[account], out, "output balance"); err != nil {
		return SwapResult{}, err
	}

	return p.applySwap(account, dir, amountIn, out), nil
}

// SwapExactOut buys exactly amountOut of the output token, paying from the
// caller's free balance. A nil maxIn disables the slippage check.
func (p *Pool) SwapExactOut(account AccountID, dir Direction, amountOut, maxIn *uint256.Int) (SwapResult, error) {
	if !dir.valid() {
		return SwapResult{}, newError(KindInvalidState, "unknown swap direction %d", dir)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireLiquidity(); err != nil {
		return SwapResult{}, err
	}
	if amountOut == nil || amountOut.IsZero() {
		return SwapResult{}, newError(KindZeroAmount, "output amount cannot be zero")
	}
	if err := checkAmount(amountOut, "output"); err != nil {
		return SwapResult{}, err
	}

	reserveIn, reserveOut := p.reservesFor(dir)
	in, err := p.quoteExactOut(reserveIn, reserveOut, amountOut)
	if err != nil {
		return SwapResult{}, err
	}

	if err := checkRoom(reserveIn, in, "input reserve"); err != nil {
		return SwapResult{}, err
	}
	k := mulChecked(reserveIn, reserveOut)
	newOut := subChecked(reserveOut, amountOut)
	if mulChecked(addChecked(reserveIn, in), newOut).Lt(k) {
		in = addChecked(in, one)
		if err := checkRoom(reserveIn, in, "input reserve"); err != nil {
			return SwapResult{}, err
		}
	}
	if maxIn != nil && in.Gt(maxIn) {
		return SwapResult{}, newError(KindSlippageExceeded,
			"input %s exceeds maximum %s", in.Dec(), maxIn.Dec())
	}
	inBook, outBook := p.booksFor(dir)
	if err := checkSpend(inBook, account, in, dir.inputToken()); err != nil {
		return SwapResult{}, err
	}
	if err := checkRoom(outBook[account], amountOut, "output balance"); err != nil {
		return SwapResult{}, err
	}

	return p.applySwap(account, dir, in, clone(amountOut)), nil
}

func (p *Pool) applySwap(account AccountID, dir Direction, in, out *uint256.Int) SwapResult {
	inBook, outBook := p.booksFor(dir)
	debit(inBook, account, in)
	credit(outBook, account, out)

	reserveIn, reserveOut := p.reservesFor(dir)
	p.setReserves(dir, addAmount(reserveIn, in), subChecked(reserveOut, out))

	return SwapResult{
		Direction: dir,
		AmountIn:  clone(in),
		AmountOut: clone(out),
		Reserve1:  clone(p.reserve1),
		Reserve2:  clone(p.reserve2),
	}
}

// quoteExactIn applies the fee to the input, then x*y=k. An output equal to
// the whole reserve is floored one unit below it so the reserve stays
// positive.
func (p *Pool) quoteExactIn(reserveIn, reserveOut, amountIn *uint256.Int) *uint256.Int {
	effectiveIn := mulDiv(amountIn, p.feeMultiplier(), thousand)
	k := mulChecked(reserveIn, reserveOut)
	newOut := divChecked(k, addChecked(reserveIn, effectiveIn))
	out := subChecked(reserveOut, newOut)
	if out.Eq(reserveOut) {
		out = subChecked(out, one)
	}
	return out
}

// quoteExactOut inverts x*y=k for the raw input and grosses it up for the
// fee. Truncation makes it only an approximate inverse of quoteExactIn.
func (p *Pool) quoteExactOut(reserveIn, reserveOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if !amountOut.Lt(reserveOut) {
		return nil, newError(KindInsufficientLiquidity,
			"requested %s but the pool holds %s", amountOut.Dec(), reserveOut.Dec())
	}
	k := mulChecked(reserveIn, reserveOut)
	newIn := divChecked(k, subChecked(reserveOut, amountOut))
	if !fitsAmount(newIn) {
		return nil, newError(KindAmountOverflow,
			"buying %s would lift the input reserve to %s", amountOut.Dec(), newIn.Dec())
	}
	raw := subChecked(newIn, reserveIn)
	return mulDiv(raw, thousand, p.feeMultiplier()), nil
}

func (p *Pool) feeMultiplier() *uint256.Int {
	return uint256.NewInt(feeDenominator - p.feeBps)
}

func (p *Pool) reservesFor(dir Direction) (reserveIn, reserveOut *uint256.Int) {
	if dir == Token2ToToken1 {
		return p.reserve2, p.reserve1
	}
	return p.reserve1, p.reserve2
}

func (p *Pool) setReserves(dir Direction, reserveIn, reserveOut *uint256.Int) {
	if dir == Token2ToToken1 {
		p.reserve2, p.reserve1 = reserveIn, reserveOut
		return
	}
	p.reserve1, p.reserve2 = reserveIn, reserveOut
}

func (p *Pool) booksFor(dir Direction) (in, out map[AccountID]*uint256.Int) {
	if dir == Token2ToToken1 {
		return p.token2Balance, p.token1Balance
	}
	return p.token1Balance, p.token2Balance
}
