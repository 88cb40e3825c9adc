package account

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// KeyStoreSigner signs with accounts of an encrypted geth keystore. Accounts must be
// unlocked before they can sign.
type KeyStoreSigner struct {
	keyStore *keystore.KeyStore
}

// NewKeyStoreSigner opens keydir as a keystore with lightweight kdf.
// If keydir is empty new temporary directory with go-ethereum-keystore will be intialized.
func NewKeyStoreSigner(keydir string) (*KeyStoreSigner, error) {
	keyStore, err := makeKeyStore(keydir)
	if err != nil {
		return nil, err
	}
	return &KeyStoreSigner{keyStore: keyStore}, nil
}

func makeKeyStore(keydir string) (*keystore.KeyStore, error) {
	var err error
	if keydir == "" {
		// There is no datadir.
		keydir, err = os.MkdirTemp("", "go-ethereum-keystore")
	}
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keydir, 0700); err != nil {
		return nil, err
	}
	return keystore.NewKeyStore(keydir, keystore.LightScryptN, keystore.LightScryptP), nil
}

// NewAccount creates a new key protected by password and returns its address.
func (s *KeyStoreSigner) NewAccount(password string) (common.Address, error) {
	acc, err := s.keyStore.NewAccount(password)
	if err != nil {
		return common.Address{}, err
	}
	return acc.Address, nil
}

// Unlock decrypts the key of address with password until the process exits.
func (s *KeyStoreSigner) Unlock(address common.Address, password string) error {
	acc, err := s.find(address)
	if err != nil {
		return err
	}
	if err := s.keyStore.Unlock(acc, password); err != nil {
		return fmt.Errorf("%s: %w", ErrAccountToKeyMappingFailure.Error(), err)
	}
	return nil
}

func (s *KeyStoreSigner) Accounts() []common.Address {
	accs := s.keyStore.Accounts()
	addresses := make([]common.Address, 0, len(accs))
	for _, acc := range accs {
		addresses = append(addresses, acc.Address)
	}
	return addresses
}

func (s *KeyStoreSigner) SignHash(ctx context.Context, address common.Address, hash []byte) ([]byte, error) {
	acc, err := s.find(address)
	if err != nil {
		return nil, err
	}
	return s.keyStore.SignHash(acc, hash)
}

func (s *KeyStoreSigner) SignTx(ctx context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	acc, err := s.find(address)
	if err != nil {
		return nil, err
	}
	return s.keyStore.SignTx(acc, tx, chainID)
}

func (s *KeyStoreSigner) find(address common.Address) (accounts.Account, error) {
	acc, err := s.keyStore.Find(accounts.Account{Address: address})
	if err != nil {
		return accounts.Account{}, ErrAddressToAccountMappingFailure
	}
	return acc, nil
}
