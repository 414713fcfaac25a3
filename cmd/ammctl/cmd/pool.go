package cmd

import (
	"github.com/spf13/cobra"
)

var eventsLimit int

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Show reserves, total shares and fee",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.Pool(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio [account]",
	Short: "Show an account's balances and shares",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		account := c.Account()
		if len(args) == 1 {
			account = args[0]
		}
		if account == "" {
			return ErrMissingAccount
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.Portfolio(ctx, account)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent pool events, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		out, err := c.RecentEvents(ctx, eventsLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "number of events")
}
