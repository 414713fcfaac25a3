package cmd

import "errors"

var (
	ErrMissingWallet  = errors.New("a --key file is required for this command")
	ErrMissingAccount = errors.New("account is required (pass it or use --key)")
	ErrInvalidMode    = errors.New("set exactly one of --amount1 or --amount2")
)
