package provider

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/account"
	perrors "github.com/status-im/connector-bridge/errors"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/correlator"
	"github.com/status-im/connector-bridge/services/connector/envelope"
	"github.com/status-im/connector-bridge/transactions/fake"
)

const (
	pageSource  = "window-1"
	providerURL = "https://mainnet.example"
)

type recordingListener struct {
	NopListener

	mu          sync.Mutex
	connects    []ConnectInfo
	chains      []string
	accounts    [][]common.Address
	disconnects []*perrors.ProviderError
}

func (l *recordingListener) OnConnect(info ConnectInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects = append(l.connects, info)
}

func (l *recordingListener) OnChainChanged(chainID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chains = append(l.chains, chainID)
}

func (l *recordingListener) OnAccountsChanged(accounts []common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = append(l.accounts, accounts)
}

func (l *recordingListener) OnDisconnect(err *perrors.ProviderError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects = append(l.disconnects, err)
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

type ProviderSuite struct {
	suite.Suite

	window   *channel.Window
	signer   *account.KeySigner
	address  common.Address
	provider *Provider
	listener *recordingListener

	ctrl   *gomock.Controller
	server *rpc.Server
	node   *fake.MockPublicTransactionPoolAPI

	mu       sync.Mutex
	received []*envelope.Request
	answer   func(req *envelope.Request) []interface{}
}

func (s *ProviderSuite) SetupTest() {
	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	s.signer = account.NewKeySigner(key)
	s.address = crypto.PubkeyToAddress(key.PublicKey)

	s.ctrl = gomock.NewController(s.T())
	s.server, s.node = fake.NewTestServer(s.ctrl)

	s.window = channel.NewWindow(pageSource)
	s.received = nil
	s.answer = s.approveAll
	s.startWallet()

	s.provider = New(Config{
		Channel:        s.window,
		Source:         pageSource,
		Timeout:        time.Second,
		DefaultChainID: "0x1",
		Dial: func(ctx context.Context, url string) (*rpc.Client, error) {
			return rpc.DialInProc(s.server), nil
		},
	})
	s.listener = &recordingListener{}
	s.provider.AddListener(s.listener)
}

func (s *ProviderSuite) TearDownTest() {
	s.provider.Close()
	s.window.Close()
	s.server.Stop()
}

// startWallet answers every request posted on the window with s.answer.
func (s *ProviderSuite) startWallet() {
	requests := make(chan channel.Message, 16)
	sub := s.window.Subscribe(requests)
	s.T().Cleanup(sub.Unsubscribe)

	go func() {
		for {
			select {
			case msg := <-requests:
				if !envelope.IsRequestEnvelope(msg.Data) {
					continue
				}
				req, err := envelope.DecodeRequest(msg.Data)
				if err != nil {
					continue
				}
				s.mu.Lock()
				s.received = append(s.received, req)
				answer := s.answer
				s.mu.Unlock()

				for _, reply := range answer(req) {
					out, err := channel.NewMessage("extension", reply)
					if err != nil {
						continue
					}
					_ = s.window.Post(context.Background(), out)
				}
			case <-sub.Err():
				return
			}
		}
	}()
}

func (s *ProviderSuite) setAnswer(answer func(req *envelope.Request) []interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = answer
}

func (s *ProviderSuite) receivedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func (s *ProviderSuite) approveAll(req *envelope.Request) []interface{} {
	ctx := context.Background()
	expected, _ := envelope.ExpectedResponse(req.Type)
	resp := envelope.NewResponse(expected, req.RequestID)

	switch req.Type {
	case envelope.Connect:
		resp.ProviderURL = providerURL
	case envelope.GetAccount:
		resp.AccountAddress = &s.address
		resp.ChainID = "0x1"
		resp.ProviderURL = providerURL
	case envelope.ChangeChain:
		resp.ChainID = req.ChainID
		resp.ProviderURL = "https://" + req.ChainID + ".example"
	case envelope.SignMessage:
		signature, err := account.SignPersonalMessage(ctx, s.signer, s.address, hexutil.MustDecode(req.MessageHex))
		if err != nil {
			return nil
		}
		resp.Signature = signature
	case envelope.SignTypedData:
		signature, err := account.SignTypedData(ctx, s.signer, s.address, req.TypedData)
		if err != nil {
			return nil
		}
		resp.Signature = signature
	case envelope.SignTransaction, envelope.SendTransaction:
		to := common.HexToAddress("0x2")
		if req.Transaction.To != nil {
			to = *req.Transaction.To
		}
		tx, err := s.signer.SignTx(ctx, s.address,
			types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000, To: &to, Value: big.NewInt(1)}),
			big.NewInt(1))
		if err != nil {
			return nil
		}
		if req.Type == envelope.SendTransaction {
			resp.Transaction = tx
		} else {
			raw, err := tx.MarshalBinary()
			if err != nil {
				return nil
			}
			resp.SignedTransactionHash = raw
		}
	}
	return []interface{}{resp}
}

func (s *ProviderSuite) connect() {
	accounts, err := s.provider.Request(context.Background(), RequestArguments{Method: "eth_requestAccounts"})
	s.Require().NoError(err)
	s.Require().Equal([]string{s.address.Hex()}, accounts)
}

func (s *ProviderSuite) TestGatedMethodsSendNothingWithoutAccount() {
	calls := []RequestArguments{
		{Method: "personal_sign", Params: []interface{}{"0x68656c6c6f", s.address.Hex()}},
		{Method: "eth_signTypedData_v4", Params: []interface{}{s.address.Hex(), `{}`}},
		{Method: "eth_signTransaction", Params: []interface{}{map[string]interface{}{"to": "0x0000000000000000000000000000000000000002"}}},
		{Method: "eth_sendTransaction", Params: []interface{}{map[string]interface{}{"to": "0x0000000000000000000000000000000000000002"}}},
		{Method: "wallet_switchEthereumChain", Params: []interface{}{map[string]interface{}{"chainId": "0x5"}}},
	}
	for _, args := range calls {
		_, err := s.provider.Request(context.Background(), args)
		s.Require().ErrorIs(err, ErrWalletNotConnected, args.Method)
		s.Require().Equal(perrors.CodeUnauthorized, ToProviderError(err).Code)
	}

	s.Require().Never(func() bool { return s.receivedCount() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func (s *ProviderSuite) TestEthSignIsAlwaysRefused() {
	_, err := s.provider.Request(context.Background(), RequestArguments{Method: "eth_sign", Params: []interface{}{s.address.Hex(), "0x00"}})
	s.Require().ErrorIs(err, ErrEthSignUnsupported)

	s.connect()
	received := s.receivedCount()

	_, err = s.provider.Request(context.Background(), RequestArguments{Method: "eth_sign", Params: []interface{}{s.address.Hex(), "0x00"}})
	s.Require().ErrorIs(err, ErrEthSignUnsupported)
	s.Require().Equal(perrors.CodeUnsupportedMethod, ToProviderError(err).Code)

	for _, params := range []interface{}{"0xdead", 42, nil, map[string]interface{}{"data": "0x00"}} {
		_, err = s.provider.Request(context.Background(), RequestArguments{Method: "eth_sign", Params: params})
		s.Require().ErrorIs(err, ErrEthSignUnsupported, "params %v", params)
	}
	s.Require().Never(func() bool { return s.receivedCount() > received }, 100*time.Millisecond, 10*time.Millisecond)
}

func (s *ProviderSuite) TestConnectAccountAndSign() {
	ctx := context.Background()

	s.Require().NoError(s.provider.Connect(ctx))
	state := s.provider.State()
	s.Require().True(state.IsConnected)
	s.Require().Equal(providerURL, state.ProviderURL)
	s.Require().Nil(state.PublicKey)

	accounts, err := s.provider.Request(ctx, RequestArguments{Method: "eth_accounts"})
	s.Require().NoError(err)
	s.Require().Empty(accounts)

	s.connect()
	s.Require().Equal(s.address, *s.provider.State().PublicKey)

	// A second call must not ask the wallet again.
	received := s.receivedCount()
	s.connect()
	s.Require().Equal(received, s.receivedCount())

	message := hexutil.Encode([]byte("hello"))
	signature, err := s.provider.Request(ctx, RequestArguments{Method: "personal_sign", Params: []interface{}{message, s.address.Hex()}})
	s.Require().NoError(err)

	sig := hexutil.MustDecode(signature.(string))
	s.Require().Len(sig, 65)
	sig[64] -= 27
	pub, err := crypto.SigToPub(crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n5hello")), sig)
	s.Require().NoError(err)
	s.Require().Equal(s.address, crypto.PubkeyToAddress(*pub))

	s.listener.mu.Lock()
	defer s.listener.mu.Unlock()
	s.Require().Equal([]ConnectInfo{{ChainID: "0x1"}}, s.listener.connects)
	s.Require().Equal([][]common.Address{{s.address}}, s.listener.accounts)
}

func (s *ProviderSuite) TestPersonalSignPlainTextIsHexEncoded() {
	s.connect()

	_, err := s.provider.Request(context.Background(), RequestArguments{Method: "personal_sign", Params: []interface{}{"hello"}})
	s.Require().NoError(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.received[len(s.received)-1]
	s.Require().Equal(envelope.SignMessage, last.Type)
	s.Require().Equal("0x68656c6c6f", last.MessageHex)
}

func (s *ProviderSuite) TestPersonalSignOtherAccount() {
	s.connect()

	_, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "personal_sign",
		Params: []interface{}{"0x00", "0x0000000000000000000000000000000000000009"},
	})
	s.Require().ErrorIs(err, ErrUnauthorizedAccount)
}

func (s *ProviderSuite) TestSignTypedData() {
	s.connect()

	typedData := `{
		"types": {
			"EIP712Domain": [{"name": "name", "type": "string"}, {"name": "chainId", "type": "uint256"}],
			"Mail": [{"name": "contents", "type": "string"}]
		},
		"primaryType": "Mail",
		"domain": {"name": "Ether Mail", "chainId": "1"},
		"message": {"contents": "Hello, Bob!"}
	}`
	signature, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "eth_signTypedData_v4",
		Params: []interface{}{s.address.Hex(), typedData},
	})
	s.Require().NoError(err)
	s.Require().Len(hexutil.MustDecode(signature.(string)), 65)
}

func (s *ProviderSuite) TestSendTransactionReturnsHash() {
	s.connect()

	hash, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "eth_sendTransaction",
		Params: []interface{}{map[string]interface{}{"to": "0x0000000000000000000000000000000000000002", "value": "0x1"}},
	})
	s.Require().NoError(err)
	s.Require().Len(common.FromHex(hash.(string)), common.HashLength)

	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.received[len(s.received)-1]
	s.Require().Equal(envelope.SendTransaction, last.Type)
	s.Require().Equal(s.address, last.Transaction.From)
}

func (s *ProviderSuite) TestSignTransactionReturnsRaw() {
	s.connect()

	raw, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "eth_signTransaction",
		Params: []interface{}{map[string]interface{}{"to": "0x0000000000000000000000000000000000000002"}},
	})
	s.Require().NoError(err)

	var tx types.Transaction
	s.Require().NoError(tx.UnmarshalBinary(hexutil.MustDecode(raw.(string))))
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), &tx)
	s.Require().NoError(err)
	s.Require().Equal(s.address, sender)
}

func (s *ProviderSuite) TestTransactionFromOtherAccount() {
	s.connect()

	_, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "eth_sendTransaction",
		Params: []interface{}{map[string]interface{}{"from": "0x0000000000000000000000000000000000000009"}},
	})
	s.Require().ErrorIs(err, ErrUnauthorizedAccount)
}

func (s *ProviderSuite) TestRejected() {
	s.connect()
	s.setAnswer(func(req *envelope.Request) []interface{} {
		return []interface{}{envelope.NewRejection(req.RequestID)}
	})

	_, err := s.provider.Request(context.Background(), RequestArguments{Method: "personal_sign", Params: []interface{}{"0x00"}})
	s.Require().ErrorIs(err, ErrUserRejected)
	s.Require().ErrorIs(err, correlator.ErrUserRejected)
	s.Require().Equal(perrors.CodeUserRejected, ToProviderError(err).Code)
}

func (s *ProviderSuite) TestTimeout() {
	s.connect()
	s.setAnswer(func(req *envelope.Request) []interface{} { return nil })
	s.provider.timeout = 50 * time.Millisecond

	_, err := s.provider.Request(context.Background(), RequestArguments{Method: "personal_sign", Params: []interface{}{"0x00"}})
	s.Require().ErrorIs(err, ErrRequestTimeout)
	s.Require().ErrorIs(err, correlator.ErrRequestTimeout)
}

func (s *ProviderSuite) TestSwitchChainRequest() {
	s.connect()

	result, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "wallet_switchEthereumChain",
		Params: []interface{}{map[string]interface{}{"chainId": "0x5"}},
	})
	s.Require().NoError(err)
	s.Require().Nil(result)

	state := s.provider.State()
	s.Require().Equal("0x5", state.ChainID)
	s.Require().Equal("https://0x5.example", state.ProviderURL)

	version, err := s.provider.Request(context.Background(), RequestArguments{Method: "net_version"})
	s.Require().NoError(err)
	s.Require().Equal("5", version)

	s.listener.mu.Lock()
	defer s.listener.mu.Unlock()
	s.Require().Equal([]string{"0x5"}, s.listener.chains)
}

func (s *ProviderSuite) TestWalletNotifications() {
	s.connect()

	s.provider.SwitchChain("0x1", providerURL)
	s.provider.SwitchChain("0x89", "https://polygon.example")
	s.provider.Disconnect()

	accounts, err := s.provider.Request(context.Background(), RequestArguments{Method: "eth_accounts"})
	s.Require().NoError(err)
	s.Require().Empty(accounts)
	s.Require().True(s.provider.State().IsConnected)

	s.provider.Close()
	s.Require().False(s.provider.State().IsConnected)

	s.listener.mu.Lock()
	defer s.listener.mu.Unlock()
	s.Require().Equal([]string{"0x89"}, s.listener.chains)
	s.Require().Equal([][]common.Address{{s.address}, {}}, s.listener.accounts)
	s.Require().Len(s.listener.disconnects, 1)
	s.Require().Equal(perrors.CodeDisconnected, s.listener.disconnects[0].Code)
}

func (s *ProviderSuite) TestRemovedListenerIsNotCalled() {
	other := &recordingListener{}
	remove := s.provider.AddListener(other)
	remove()

	s.provider.SwitchChain("0x5", providerURL)
	s.Require().Empty(other.chains)
}

func (s *ProviderSuite) TestChainIDDefaults() {
	chainID, err := s.provider.Request(context.Background(), RequestArguments{Method: "eth_chainId"})
	s.Require().NoError(err)
	s.Require().Equal("0x1", chainID)

	version, err := s.provider.Request(context.Background(), RequestArguments{Method: "net_version"})
	s.Require().NoError(err)
	s.Require().Equal("1", version)
}

func (s *ProviderSuite) TestQueryIsForwardedToNode() {
	s.Require().NoError(s.provider.Connect(context.Background()))

	s.node.EXPECT().GetBalance(gomock.Any(), s.address, rpc.LatestBlockNumber).Return(fake.GasPriceOf(100), nil)
	balance, err := s.provider.Request(context.Background(), RequestArguments{
		Method: "eth_getBalance",
		Params: []interface{}{s.address.Hex(), "latest"},
	})
	s.Require().NoError(err)
	s.Require().JSONEq(`"0x64"`, string(balance.(json.RawMessage)))

	s.node.EXPECT().BlockNumber(gomock.Any()).Return(hexutil.Uint64(0), errors.New("node is syncing"))
	_, err = s.provider.Request(context.Background(), RequestArguments{Method: "eth_blockNumber"})
	s.Require().Error(err)
	providerErr := ToProviderError(err)
	s.Require().Equal(perrors.ErrorCode(-32000), providerErr.Code)
	s.Require().Equal("node is syncing", providerErr.Message)
}

func (s *ProviderSuite) TestQueryWithoutProviderURL() {
	_, err := s.provider.Request(context.Background(), RequestArguments{Method: "eth_blockNumber"})
	s.Require().ErrorIs(err, ErrProviderDisconnected)
}

func (s *ProviderSuite) TestMalformedCalls() {
	_, err := s.provider.Request(context.Background(), RequestArguments{})
	s.Require().ErrorIs(err, ErrInvalidRequest)

	_, err = s.provider.Request(context.Background(), RequestArguments{Method: "eth_accounts", Params: "nope"})
	s.Require().ErrorIs(err, ErrInvalidRequest)

	_, err = s.provider.Request(context.Background(), RequestArguments{Method: "eth_mine"})
	s.Require().ErrorIs(err, ErrInvalidRequest)

	_, err = s.provider.Request(context.Background(), RequestArguments{
		Method: "wallet_switchEthereumChain",
		Params: []interface{}{map[string]interface{}{"chainId": "five"}},
	})
	s.Require().ErrorIs(err, ErrInvalidParams)
}

func (s *ProviderSuite) TestHandleJSON() {
	var resp JSONRPCResponse
	s.Require().NoError(json.Unmarshal(s.provider.HandleJSON(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":7,"method":"eth_chainId"}`)), &resp))
	s.Require().Equal("7", string(resp.ID))
	s.Require().Equal("0x1", resp.Result)
	s.Require().Nil(resp.Error)

	resp = JSONRPCResponse{}
	s.Require().NoError(json.Unmarshal(s.provider.HandleJSON(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":"a","method":"personal_sign","params":["0x00"]}`)), &resp))
	s.Require().Equal(`"a"`, string(resp.ID))
	s.Require().NotNil(resp.Error)
	s.Require().Equal(perrors.CodeUnauthorized, resp.Error.Code)

	resp = JSONRPCResponse{}
	s.Require().NoError(json.Unmarshal(s.provider.HandleJSON(context.Background(), []byte(`{`)), &resp))
	s.Require().Equal(perrors.CodeInvalidRequest, resp.Error.Code)
}

func (s *ProviderSuite) TestSendAsync() {
	done := make(chan *JSONRPCResponse, 1)
	s.provider.SendAsync(context.Background(), JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage("1"),
		Method:  "eth_requestAccounts",
	}, func(resp *JSONRPCResponse) { done <- resp })

	select {
	case resp := <-done:
		s.Require().Nil(resp.Error)
		s.Require().Equal([]string{s.address.Hex()}, resp.Result)
	case <-time.After(time.Second):
		s.Fail("callback was not called")
	}
}
