package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey is returned when the configured credential is not a
// secp256k1 private key.
var ErrInvalidKey = errors.New("invalid private key")

// Signer signs EVM transactions with a hex-encoded private key. The key is
// parsed on use, so an empty or malformed credential only fails when a
// transaction is actually signed.
type Signer struct {
	hexKey string
}

// NewSigner creates a signer for hexKey (with or without 0x).
func NewSigner(hexKey string) *Signer {
	return &Signer{hexKey: hexKey}
}

func (s *Signer) privateKey() (*ecdsa.PrivateKey, error) {
	k, err := crypto.HexToECDSA(normaliseHexKey(s.hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k, nil
}

// Address returns the account address derived from the key.
func (s *Signer) Address() (common.Address, error) {
	k, err := s.privateKey()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(k.PublicKey), nil
}

// SignTx signs tx for chainID and returns the signed transaction.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	k, err := s.privateKey()
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), k)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// normaliseHexKey trims whitespace and a 0x/0X prefix.
func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
