package cmd

import (
	"github.com/spf13/cobra"
)

var (
	quoteDirection string
	quoteAmount    string
	quoteExactOut  bool

	quoteShares string

	quoteAmount1 string
	quoteAmount2 string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Estimate a swap against the current reserves",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.Quote(ctx, quoteDirection, swapMode(quoteExactOut), quoteAmount)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var quoteWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Estimate the tokens released by burning shares",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.QuoteWithdraw(ctx, quoteShares)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var quoteDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Compute the ratio-matched counterpart of a deposit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if (quoteAmount1 == "") == (quoteAmount2 == "") {
			return ErrInvalidMode
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.QuoteDeposit(ctx, quoteAmount1, quoteAmount2)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

func swapMode(exactOut bool) string {
	if exactOut {
		return "exact_out"
	}
	return "exact_in"
}

func init() {
	quoteCmd.Flags().StringVar(&quoteDirection, "direction", "1to2", "swap direction, 1to2 or 2to1")
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "input amount, or output amount with --exact-out")
	quoteCmd.Flags().BoolVar(&quoteExactOut, "exact-out", false, "quote the input needed for an exact output")
	_ = quoteCmd.MarkFlagRequired("amount")

	quoteWithdrawCmd.Flags().StringVar(&quoteShares, "shares", "", "shares to burn")
	_ = quoteWithdrawCmd.MarkFlagRequired("shares")

	quoteDepositCmd.Flags().StringVar(&quoteAmount1, "amount1", "", "token1 amount")
	quoteDepositCmd.Flags().StringVar(&quoteAmount2, "amount2", "", "token2 amount")

	quoteCmd.AddCommand(quoteWithdrawCmd, quoteDepositCmd)
}
