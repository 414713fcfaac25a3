package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is an ed25519 keypair whose base58 public key is the pool account id.
type Wallet struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New generates a fresh keypair.
func New() (*Wallet, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// FromPrivateKey accepts a base58-encoded 64-byte key or a solana-keygen
// JSON array.
func FromPrivateKey(s string) (*Wallet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("wallet: private key is required")
	}
	priv, err := parsePrivateKey(s)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// FromFile loads a solana-keygen keypair file.
func FromFile(path string) (*Wallet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: read keypair: %w", err)
	}
	return FromPrivateKey(string(b))
}

// SaveFile writes the keypair as a solana-keygen JSON byte array.
func (w *Wallet) SaveFile(path string) error {
	ints := make([]int, len(w.priv))
	for i, b := range w.priv {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("wallet: encode keypair: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("wallet: write keypair: %w", err)
	}
	return nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }
func (w *Wallet) Account() amm.AccountID      { return amm.AccountID(w.pub.String()) }

// PrivateKeyBase58 exports the key in the form FromPrivateKey accepts.
func (w *Wallet) PrivateKeyBase58() string { return w.priv.String() }

// ParseAccount validates a base58 address and returns it as an account id.
func ParseAccount(s string) (amm.AccountID, error) {
	pub, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("wallet: invalid account %q: %w", s, err)
	}
	return amm.AccountID(pub.String()), nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
