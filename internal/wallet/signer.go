package wallet

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Signer holds one wallet keypair. Strategy loops treat it as opaque:
// a public key for quoting and a sign-this-transaction operation.
type Signer struct {
	key solana.PrivateKey
}

// NewSigner builds a signer from a base58-encoded private key.
func NewSigner(privateKeyBase58 string) (*Signer, error) {
	key, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet private key: %w", err)
	}
	return &Signer{key: key}, nil
}

// PublicKey returns the wallet address, base58.
func (s *Signer) PublicKey() string {
	return s.key.PublicKey().String()
}

// SignTransaction signs a base64-encoded serialized transaction (the
// aggregator's swap output) and returns the signed transaction, base64.
func (s *Signer) SignTransaction(txBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return "", fmt.Errorf("failed to deserialize transaction: %w", err)
	}

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	signed, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize signed transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}
