//go:generate mockgen -package=mock_account -source=signer.go -destination=mock/signer.go

package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	ErrAddressToAccountMappingFailure = errors.New("cannot retrieve a valid account for a given address")
	ErrAccountToKeyMappingFailure     = errors.New("cannot retrieve a valid key for a given account")
	ErrNoAccountSelected              = errors.New("no account has been selected, please login")
	ErrInvalidSignatureSize           = errors.New("signature size must be 65")
)

const signatureSize = 65

// Signer is the opaque signing capability of the wallet. Implementations own the keys;
// callers only ever see addresses and signatures.
type Signer interface {
	// Accounts lists the addresses this signer can sign for.
	Accounts() []common.Address
	// SignHash signs a 32 byte digest and returns a [R || S || V] signature with V in {0, 1}.
	SignHash(ctx context.Context, address common.Address, hash []byte) ([]byte, error)
	// SignTx returns a signed copy of tx.
	SignTx(ctx context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// HasAccount reports whether signer can sign for address.
func HasAccount(signer Signer, address common.Address) bool {
	for _, acc := range signer.Accounts() {
		if acc == address {
			return true
		}
	}
	return false
}

// SignPersonalMessage is a MetaMask compatible personal_sign: the message is prefixed with
// "\x19Ethereum Signed Message:\n" and its length, and V is moved to {27, 28}.
func SignPersonalMessage(ctx context.Context, signer Signer, address common.Address, message []byte) (hexutil.Bytes, error) {
	return signLegacyV(ctx, signer, address, accounts.TextHash(message))
}

// SignTypedData signs an EIP-712 payload. typedData is the JSON document a dApp passes to
// eth_signTypedData_v4, either as an object or as a JSON encoded string.
func SignTypedData(ctx context.Context, signer Signer, address common.Address, typedData json.RawMessage) (hexutil.Bytes, error) {
	var data apitypes.TypedData
	if err := unmarshalTypedData(typedData, &data); err != nil {
		return nil, err
	}

	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, err
	}
	return signLegacyV(ctx, signer, address, hash)
}

func unmarshalTypedData(raw json.RawMessage, data *apitypes.TypedData) error {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("invalid typed data: %w", err)
	}
	return nil
}

func signLegacyV(ctx context.Context, signer Signer, address common.Address, hash []byte) (hexutil.Bytes, error) {
	sig, err := signer.SignHash(ctx, address, hash)
	if err != nil {
		return nil, err
	}
	if len(sig) != signatureSize {
		return nil, ErrInvalidSignatureSize
	}
	sig[64] += 27
	return sig, nil
}
