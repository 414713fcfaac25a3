package cmd

import (
	"github.com/aman-zulfiqar/constant-product-amm/internal/server"
	"github.com/spf13/cobra"
)

var (
	amount1 string
	amount2 string
	shares  string

	swapDirection   string
	swapAmount      string
	swapExactOut    bool
	swapLimit       string
	swapSlippageBps uint16
)

var faucetCmd = &cobra.Command{
	Use:   "faucet",
	Short: "Credit free balances to the --key account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := signedClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.Faucet(ctx, server.FundRequest{Account: c.Account(), Amount1: amount1, Amount2: amount2})
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Provide liquidity from the --key account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := signedClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.ProvideLiquidity(ctx, server.LiquidityRequest{Account: c.Account(), Amount1: amount1, Amount2: amount2})
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Burn shares held by the --key account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := signedClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.Withdraw(ctx, server.WithdrawRequest{Account: c.Account(), Shares: shares})
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap from the --key account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := signedClient()
		if err != nil {
			return err
		}
		req := server.SwapRequest{
			Account:   c.Account(),
			Direction: swapDirection,
			Mode:      swapMode(swapExactOut),
			Amount:    swapAmount,
			Limit:     swapLimit,
		}
		if cmd.Flags().Changed("slippage-bps") {
			bps := swapSlippageBps
			req.SlippageBps = &bps
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.Swap(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

func init() {
	for _, c := range []*cobra.Command{faucetCmd, depositCmd} {
		c.Flags().StringVar(&amount1, "amount1", "0", "token1 amount")
		c.Flags().StringVar(&amount2, "amount2", "0", "token2 amount")
	}

	withdrawCmd.Flags().StringVar(&shares, "shares", "", "shares to burn")
	_ = withdrawCmd.MarkFlagRequired("shares")

	swapCmd.Flags().StringVar(&swapDirection, "direction", "1to2", "swap direction, 1to2 or 2to1")
	swapCmd.Flags().StringVar(&swapAmount, "amount", "", "input amount, or output amount with --exact-out")
	swapCmd.Flags().BoolVar(&swapExactOut, "exact-out", false, "buy an exact output amount")
	swapCmd.Flags().StringVar(&swapLimit, "limit", "", "minimum output, or maximum input with --exact-out")
	swapCmd.Flags().Uint16Var(&swapSlippageBps, "slippage-bps", 0, "derive the limit from the quote with this tolerance")
	_ = swapCmd.MarkFlagRequired("amount")
}
