package account

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySigner signs with raw private keys held in memory. It backs the page simulator and tests.
type KeySigner struct {
	keys      map[common.Address]*ecdsa.PrivateKey
	addresses []common.Address
}

func NewKeySigner(keys ...*ecdsa.PrivateKey) *KeySigner {
	s := &KeySigner{keys: make(map[common.Address]*ecdsa.PrivateKey, len(keys))}
	for _, key := range keys {
		address := crypto.PubkeyToAddress(key.PublicKey)
		if _, ok := s.keys[address]; ok {
			continue
		}
		s.keys[address] = key
		s.addresses = append(s.addresses, address)
	}
	return s
}

// NewKeySignerFromHex parses hex encoded private keys, with or without 0x prefix.
func NewKeySignerFromHex(hexKeys ...string) (*KeySigner, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(hexKeys))
	for _, hexKey := range hexKeys {
		key, err := crypto.HexToECDSA(trimHexPrefix(hexKey))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return NewKeySigner(keys...), nil
}

func (s *KeySigner) Accounts() []common.Address {
	return append([]common.Address(nil), s.addresses...)
}

func (s *KeySigner) SignHash(ctx context.Context, address common.Address, hash []byte) ([]byte, error) {
	key, ok := s.keys[address]
	if !ok {
		return nil, ErrAddressToAccountMappingFailure
	}
	return crypto.Sign(hash, key)
}

func (s *KeySigner) SignTx(ctx context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	key, ok := s.keys[address]
	if !ok {
		return nil, ErrAddressToAccountMappingFailure
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
