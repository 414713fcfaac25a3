package engine

import (
	"fmt"

	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/holiman/uint256"
)

// RiskConfig defines the slippage policy applied to swaps
type RiskConfig struct {
	// Slippage constraints
	DefaultSlippageBps uint16 // Applied when a swap carries no explicit bound (e.g., 100 = 1%)
	MaxSlippageBps     uint16 // Max allowed slippage (e.g., 1000 = 10%)
}

// DefaultRiskConfig returns conservative risk settings
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		DefaultSlippageBps: 100,  // 1% default slippage
		MaxSlippageBps:     1000, // 10% max slippage
	}
}

// Validate checks the policy is internally consistent
func (c RiskConfig) Validate() error {
	if c.MaxSlippageBps > constants.BpsDenominator {
		return fmt.Errorf("max slippage %d bps exceeds %d", c.MaxSlippageBps, constants.BpsDenominator)
	}
	if c.DefaultSlippageBps > c.MaxSlippageBps {
		return fmt.Errorf("default slippage %d bps exceeds max %d bps", c.DefaultSlippageBps, c.MaxSlippageBps)
	}
	return nil
}

// resolveSlippage picks the request's slippage or the default, rejecting
// values above the max.
func (c RiskConfig) resolveSlippage(requested *uint16) (uint16, error) {
	if requested == nil {
		return c.DefaultSlippageBps, nil
	}
	if *requested > c.MaxSlippageBps {
		return 0, fmt.Errorf("%w: slippage %d bps exceeds max %d bps", ErrInvalidRequest, *requested, c.MaxSlippageBps)
	}
	return *requested, nil
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut *uint256.Int, slippageBps uint16) *uint256.Int {
	if slippageBps >= constants.BpsDenominator {
		return new(uint256.Int) // 100% slippage = no output
	}

	// minOut = amountOut * (10000 - slippageBps) / 10000
	factor := uint256.NewInt(uint64(constants.BpsDenominator - slippageBps))
	result, overflow := new(uint256.Int).MulOverflow(amountOut, factor)
	if overflow {
		// amountOut is within 2^256/10000 of the max; divide first
		result = new(uint256.Int).Div(amountOut, uint256.NewInt(constants.BpsDenominator))
		return result.Mul(result, factor)
	}
	return result.Div(result, uint256.NewInt(constants.BpsDenominator))
}

// ApplySlippageCeiling calculates maximum input with slippage tolerance,
// rounding up so any non-zero tolerance admits at least one extra unit.
func ApplySlippageCeiling(amountIn *uint256.Int, slippageBps uint16) *uint256.Int {
	// maxIn = ceil(amountIn * (10000 + slippageBps) / 10000)
	denom := uint256.NewInt(constants.BpsDenominator)
	factor := uint256.NewInt(uint64(constants.BpsDenominator) + uint64(slippageBps))
	product, overflow := new(uint256.Int).MulOverflow(amountIn, factor)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	result, rem := new(uint256.Int).DivMod(product, denom, new(uint256.Int))
	if !rem.IsZero() {
		result.AddUint64(result, 1)
	}
	return result
}
