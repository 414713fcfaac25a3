package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrBadSignature is returned when a request signature does not verify.
var ErrBadSignature = errors.New("wallet: signature does not match account")

// Sign signs payload and returns the base58 signature.
func (w *Wallet) Sign(payload []byte) (string, error) {
	sig, err := w.priv.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("wallet: sign: %w", err)
	}
	return sig.String(), nil
}

// Verify checks a base58 signature of payload against a base58 account.
func Verify(account string, payload []byte, signature string) error {
	pub, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return fmt.Errorf("wallet: invalid account %q: %w", account, err)
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("wallet: invalid signature: %w", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), payload, sig[:]) {
		return ErrBadSignature
	}
	return nil
}
