package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/client"
	"github.com/aman-zulfiqar/constant-product-amm/internal/wallet"
	"github.com/spf13/cobra"
)

const (
	defaultAPIURL  = "http://localhost:8090"
	defaultTimeout = 15 * time.Second
)

var (
	apiURL  string
	apiKey  string
	keyFile string
	timeout time.Duration

	rootCmd = &cobra.Command{
		Use:        "ammctl",
		Short:      "Constant-product pool CLI",
		SuggestFor: []string{"ammctl", "amm-cli"},
	}
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.AddCommand(
		keyCmd,
		poolCmd,
		portfolioCmd,
		eventsCmd,
		quoteCmd,
		faucetCmd,
		depositCmd,
		withdrawCmd,
		swapCmd,
		simulateCmd,
	)
	rootCmd.PersistentFlags().StringVar(
		&apiURL,
		"api",
		envOr("AMM_API_URL", defaultAPIURL),
		"pool API base URL",
	)
	rootCmd.PersistentFlags().StringVar(
		&apiKey,
		"api-key",
		os.Getenv("API_KEY"),
		"API key sent as X-API-Key",
	)
	rootCmd.PersistentFlags().StringVar(
		&keyFile,
		"key",
		os.Getenv("AMM_KEY_FILE"),
		"keypair file used as the account and to sign requests",
	)
	rootCmd.PersistentFlags().DurationVar(
		&timeout,
		"timeout",
		defaultTimeout,
		"request timeout",
	)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func Execute() error {
	return rootCmd.Execute()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newClient builds an API client, signing with --key when given.
func newClient() (*client.Client, error) {
	c := client.NewClient(apiURL, apiKey)
	c.HTTP.Timeout = timeout
	if keyFile != "" {
		w, err := wallet.FromFile(keyFile)
		if err != nil {
			return nil, err
		}
		c.Wallet = w
	}
	return c, nil
}

// signedClient is newClient for commands acting as an account.
func signedClient() (*client.Client, error) {
	if keyFile == "" {
		return nil, ErrMissingWallet
	}
	return newClient()
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
