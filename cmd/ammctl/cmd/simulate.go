package cmd

import (
	"fmt"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

// simulated trades run against a throwaway pool seeded by this account
const simAccount amm.AccountID = "simulator"

var (
	simReserve1  string
	simReserve2  string
	simFeeBps    uint64
	simDirection string
	simAmounts   []string
	simExactOut  bool
)

type simStep struct {
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Reserve1  string `json:"reserve1"`
	Reserve2  string `json:"reserve2"`
}

type simResult struct {
	FeeBps    uint64    `json:"fee_bps"`
	Direction string    `json:"direction"`
	Mode      string    `json:"mode"`
	Steps     []simStep `json:"steps"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run swaps against an offline pool with the given reserves",
	Long: "Seeds a local pool with --reserve1/--reserve2 and applies each --amount in\n" +
		"order, printing the executed amounts and the reserves after every step.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := simulate()
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

func simulate() (*simResult, error) {
	dir, err := amm.ParseDirection(simDirection)
	if err != nil {
		return nil, err
	}
	r1, err := amm.ParseAmount(simReserve1)
	if err != nil {
		return nil, fmt.Errorf("reserve1: %w", err)
	}
	r2, err := amm.ParseAmount(simReserve2)
	if err != nil {
		return nil, fmt.Errorf("reserve2: %w", err)
	}

	pool := amm.New(simFeeBps)
	if err := pool.Fund(simAccount, r1, r2); err != nil {
		return nil, err
	}
	if _, err := pool.ProvideLiquidity(simAccount, r1, r2); err != nil {
		return nil, err
	}

	out := &simResult{FeeBps: pool.FeeBps(), Direction: dir.String(), Mode: swapMode(simExactOut)}
	for _, s := range simAmounts {
		amount, err := amm.ParseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", s, err)
		}

		// the trader is funded with what the step needs
		var res amm.SwapResult
		if simExactOut {
			in, err := pool.EstimateSwapExactOut(dir, amount)
			if err != nil {
				return nil, err
			}
			// the quote can sit one unit under the executed cost
			if err := fundInput(pool, dir, new(uint256.Int).AddUint64(in, 1)); err != nil {
				return nil, err
			}
			res, err = pool.SwapExactOut(simAccount, dir, amount, nil)
			if err != nil {
				return nil, err
			}
		} else {
			if err := fundInput(pool, dir, amount); err != nil {
				return nil, err
			}
			res, err = pool.Swap(simAccount, dir, amount, nil)
			if err != nil {
				return nil, err
			}
		}

		out.Steps = append(out.Steps, simStep{
			AmountIn:  res.AmountIn.Dec(),
			AmountOut: res.AmountOut.Dec(),
			Reserve1:  res.Reserve1.Dec(),
			Reserve2:  res.Reserve2.Dec(),
		})
	}
	return out, nil
}

func fundInput(pool *amm.Pool, dir amm.Direction, amount *uint256.Int) error {
	if dir == amm.Token1ToToken2 {
		return pool.Fund(simAccount, amount, amm.NewAmount(0))
	}
	return pool.Fund(simAccount, amm.NewAmount(0), amount)
}

func init() {
	simulateCmd.Flags().StringVar(&simReserve1, "reserve1", "1000", "token1 reserve")
	simulateCmd.Flags().StringVar(&simReserve2, "reserve2", "1000", "token2 reserve")
	simulateCmd.Flags().Uint64Var(&simFeeBps, "fee", 3, "fee in parts per thousand")
	simulateCmd.Flags().StringVar(&simDirection, "direction", "1to2", "swap direction, 1to2 or 2to1")
	simulateCmd.Flags().StringSliceVar(&simAmounts, "amount", nil, "amounts to swap in order (repeatable)")
	simulateCmd.Flags().BoolVar(&simExactOut, "exact-out", false, "treat amounts as exact outputs")
	_ = simulateCmd.MarkFlagRequired("amount")
}
