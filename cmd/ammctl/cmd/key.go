package cmd

import (
	"fmt"

	"github.com/aman-zulfiqar/constant-product-amm/internal/wallet"
	"github.com/spf13/cobra"
)

var keyOut string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage account keypairs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a keypair and write it as a solana-keygen file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if keyOut == "" {
			return fmt.Errorf("--out is required")
		}
		w, err := wallet.New()
		if err != nil {
			return err
		}
		if err := w.SaveFile(keyOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\naddress: %s\n", keyOut, w.Address())
		return nil
	},
}

var keyAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the --key keypair",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if keyFile == "" {
			return ErrMissingWallet
		}
		w, err := wallet.FromFile(keyFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), w.Address())
		return nil
	},
}

func init() {
	keyGenerateCmd.Flags().StringVar(&keyOut, "out", "", "output file")
	keyCmd.AddCommand(keyGenerateCmd, keyAddressCmd)
}
