package account

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const testTypedData = `{
	"types": {
		"EIP712Domain": [{"name": "name", "type": "string"}, {"name": "chainId", "type": "uint256"}],
		"Greeting": [{"name": "text", "type": "string"}]
	},
	"primaryType": "Greeting",
	"domain": {"name": "Test", "chainId": "1"},
	"message": {"text": "hello"}
}`

func recoverAddress(t *testing.T, hash []byte, sig []byte) common.Address {
	require.Len(t, sig, 65)
	plain := append([]byte(nil), sig...)
	plain[64] -= 27
	pub, err := crypto.SigToPub(hash, plain)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub)
}

func TestSignPersonalMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewKeySigner(key)
	address := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignPersonalMessage(context.Background(), signer, address, []byte("hello"))
	require.NoError(t, err)
	require.True(t, sig[64] == 27 || sig[64] == 28)
	require.Equal(t, address, recoverAddress(t, accounts.TextHash([]byte("hello")), sig))

	_, err = SignPersonalMessage(context.Background(), signer, common.HexToAddress("0x1"), []byte("hello"))
	require.ErrorIs(t, err, ErrAddressToAccountMappingFailure)
}

func TestSignTypedData(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewKeySigner(key)
	address := crypto.PubkeyToAddress(key.PublicKey)

	var data apitypes.TypedData
	require.NoError(t, json.Unmarshal([]byte(testTypedData), &data))
	hash, _, err := apitypes.TypedDataAndHash(data)
	require.NoError(t, err)

	sig, err := SignTypedData(context.Background(), signer, address, json.RawMessage(testTypedData))
	require.NoError(t, err)
	require.Equal(t, address, recoverAddress(t, hash, sig))

	// dApps often pass the document as a JSON string
	encoded, err := json.Marshal(testTypedData)
	require.NoError(t, err)
	sig2, err := SignTypedData(context.Background(), signer, address, encoded)
	require.NoError(t, err)
	require.Equal(t, sig, sig2)

	_, err = SignTypedData(context.Background(), signer, address, json.RawMessage(`{"types": 1}`))
	require.Error(t, err)
}

func TestKeySignerSignTx(t *testing.T) {
	signer, err := NewKeySignerFromHex("0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	require.Len(t, signer.Accounts(), 1)
	address := signer.Accounts()[0]
	require.True(t, HasAccount(signer, address))

	to := common.HexToAddress("0x2")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(10),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(5),
	})
	signed, err := signer.SignTx(context.Background(), address, tx, big.NewInt(1))
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), signed)
	require.NoError(t, err)
	require.Equal(t, address, sender)
}

func TestKeyStoreSigner(t *testing.T) {
	signer, err := NewKeyStoreSigner(t.TempDir())
	require.NoError(t, err)

	address, err := signer.NewAccount("secret")
	require.NoError(t, err)
	require.Equal(t, []common.Address{address}, signer.Accounts())

	hash := crypto.Keccak256([]byte("data"))
	_, err = signer.SignHash(context.Background(), address, hash)
	require.Error(t, err, "locked account must not sign")

	require.Error(t, signer.Unlock(address, "wrong"))
	require.NoError(t, signer.Unlock(address, "secret"))

	sig, err := SignPersonalMessage(context.Background(), signer, address, []byte("data"))
	require.NoError(t, err)
	require.Equal(t, address, recoverAddress(t, accounts.TextHash([]byte("data")), sig))

	_, err = signer.SignHash(context.Background(), common.HexToAddress("0x3"), hash)
	require.ErrorIs(t, err, ErrAddressToAccountMappingFailure)
}
