// "ammctl" drives a pool over the HTTP API and simulates swaps offline.
package main

import (
	"fmt"
	"os"

	"github.com/aman-zulfiqar/constant-product-amm/cmd/ammctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ammctl exited with error: %+v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
