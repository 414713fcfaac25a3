package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ContractViolation is the panic value raised when pool arithmetic overflows,
// underflows or divides by zero after every precondition has passed.
type ContractViolation struct {
	Op   string
	X, Y string
}

func (c ContractViolation) Error() string {
	return fmt.Sprintf("amm: arithmetic contract violation: %s %s %s", c.X, c.Op, c.Y)
}

// AmountBits is the width of every token amount. Reserves, balances and
// trade sizes stay within it, so reserve products always fit in 256 bits.
const AmountBits = 128

var (
	thousand = uint256.NewInt(feeDenominator)
	one      = uint256.NewInt(1)

	// MaxAmount is the largest token amount the pool accepts.
	MaxAmount = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), AmountBits), 1)
)

// NewAmount returns an Amount holding v.
func NewAmount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// ParseAmount parses a base-10 amount no wider than AmountBits.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if v.BitLen() > AmountBits {
		return nil, fmt.Errorf("parse amount %q: %w", s, ErrAmountOverflow)
	}
	return v, nil
}

func fitsAmount(x *uint256.Int) bool {
	return x.BitLen() <= AmountBits
}

// checkAmount rejects amounts a caller passes in that exceed MaxAmount.
func checkAmount(x *uint256.Int, what string) error {
	if x != nil && !fitsAmount(x) {
		return newError(KindAmountOverflow, "%s amount %s exceeds %d bits", what, x.Dec(), AmountBits)
	}
	return nil
}

// checkRoom rejects adding amount to held when the sum would exceed
// MaxAmount. Both operands fit in AmountBits, so the sum cannot wrap.
func checkRoom(held, amount *uint256.Int, what string) error {
	if held == nil || amount == nil {
		return checkAmount(amount, what)
	}
	if sum := new(uint256.Int).Add(held, amount); !fitsAmount(sum) {
		return newError(KindAmountOverflow, "%s would reach %s, above %d bits", what, sum.Dec(), AmountBits)
	}
	return nil
}

func zero() *uint256.Int {
	return new(uint256.Int)
}

func clone(x *uint256.Int) *uint256.Int {
	if x == nil {
		return zero()
	}
	return new(uint256.Int).Set(x)
}

func addChecked(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		panic(ContractViolation{Op: "+", X: x.Dec(), Y: y.Dec()})
	}
	return z
}

// addAmount is addChecked for reserves and balances, bounded by MaxAmount.
func addAmount(x, y *uint256.Int) *uint256.Int {
	z := addChecked(x, y)
	if !fitsAmount(z) {
		panic(ContractViolation{Op: "+", X: x.Dec(), Y: y.Dec()})
	}
	return z
}

func subChecked(x, y *uint256.Int) *uint256.Int {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		panic(ContractViolation{Op: "-", X: x.Dec(), Y: y.Dec()})
	}
	return z
}

func mulChecked(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		panic(ContractViolation{Op: "*", X: x.Dec(), Y: y.Dec()})
	}
	return z
}

// divChecked truncates toward zero. uint256 silently returns 0 for a zero
// divisor, so that case is trapped here.
func divChecked(x, y *uint256.Int) *uint256.Int {
	if y.IsZero() {
		panic(ContractViolation{Op: "/", X: x.Dec(), Y: y.Dec()})
	}
	return new(uint256.Int).Div(x, y)
}

// mulDiv computes x*y/d through a 512-bit product; only a quotient wider
// than 256 bits is a violation.
func mulDiv(x, y, d *uint256.Int) *uint256.Int {
	if d.IsZero() {
		panic(ContractViolation{Op: "/", X: x.Dec(), Y: d.Dec()})
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		panic(ContractViolation{Op: "*/", X: x.Dec(), Y: y.Dec()})
	}
	return z
}
