package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/account"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/dispatcher"
	"github.com/status-im/connector-bridge/services/connector/provider"
	"github.com/status-im/connector-bridge/services/connector/relay"
	"github.com/status-im/connector-bridge/signal"
)

const (
	testTabID    = 7
	testOrigin   = "https://dapp.example"
	testWindowID = "window-1"
)

func TestConnectorSuite(t *testing.T) {
	suite.Run(t, new(ConnectorSuite))
}

// ConnectorSuite runs the whole path: provider, relay, websocket hub, dispatcher and the
// wallet API deciding on signals.
type ConnectorSuite struct {
	suite.Suite

	signer  *account.KeySigner
	address common.Address

	service *Service
	api     *API
	client  *gethrpc.Client
	server  *httptest.Server

	extension *channel.WebSocket
	page      *channel.Window
	provider  *provider.Provider
	relay     *relay.Relay

	mu      sync.Mutex
	approve bool
	signals []string
}

func (s *ConnectorSuite) SetupTest() {
	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	s.signer = account.NewKeySigner(key)
	s.address = crypto.PubkeyToAddress(key.PublicKey)

	config := params.NewConfigWithDefaults()
	config.Networks = []params.Network{
		{ChainID: 1, ChainName: "Mainnet", RPCURL: "https://mainnet.example", Enabled: true},
		{ChainID: 5, ChainName: "Goerli", RPCURL: "https://goerli.example", IsTest: true, Enabled: true},
	}
	s.Require().NoError(config.Validate())

	noUpstream := func(ctx context.Context, url string) (*gethrpc.Client, error) {
		return nil, errors.New("no upstream in tests")
	}
	s.service = NewService(config, s.signer, noUpstream, zap.NewNop())
	s.Require().NoError(s.service.Start())
	s.api = NewAPI(s.service)

	rpcServer := gethrpc.NewServer()
	for _, api := range s.service.APIs() {
		s.Require().NoError(rpcServer.RegisterName(api.Namespace, api.Service))
	}
	s.client = gethrpc.DialInProc(rpcServer)

	s.approve = true
	s.signals = nil
	signal.SetMobileSignalHandler(s.decide)

	s.server = httptest.NewServer(s.service.Hub())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/extension?tab=7&origin=" + testOrigin
	s.extension, err = channel.DialWebSocket(ctx, url, nil, "content-script", zap.NewNop())
	s.Require().NoError(err)

	s.page = channel.NewWindow(testWindowID)
	s.provider = provider.New(provider.Config{
		Channel:        s.page,
		Source:         testWindowID,
		Timeout:        5 * time.Second,
		DefaultChainID: "0x1",
	})
	s.relay = relay.New(s.page, testWindowID, s.extension, s.provider, zap.NewNop())
	s.relay.Start()
}

func (s *ConnectorSuite) TearDownTest() {
	signal.ResetMobileSignalHandler()
	s.relay.Stop()
	s.provider.Close()
	s.page.Close()
	s.Require().NoError(s.extension.Close())
	s.server.Close()
	s.client.Close()
	s.Require().NoError(s.service.Stop())
}

// decide plays the wallet UI: every queued request is answered through the RPC API.
func (s *ConnectorSuite) decide(data []byte) {
	var envelope struct {
		Type  string          `json:"type"`
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}

	s.mu.Lock()
	s.signals = append(s.signals, envelope.Type)
	approve := s.approve
	s.mu.Unlock()

	if envelope.Type != signal.EventConnectorDAppRequestAdded {
		return
	}
	var event signal.ConnectorDAppRequestSignal
	if err := json.Unmarshal(envelope.Event, &event); err != nil {
		return
	}

	go func() {
		if approve {
			_ = s.client.Call(nil, "connector_confirm", dispatcher.ConfirmArgs{RequestID: event.RequestID})
			return
		}
		_ = s.client.Call(nil, "connector_reject", event.RequestID)
	}()
}

func (s *ConnectorSuite) setApprove(approve bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approve = approve
}

func (s *ConnectorSuite) seen(typ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.signals {
		if t == typ {
			return true
		}
	}
	return false
}

func (s *ConnectorSuite) requestAccounts() {
	accounts, err := s.provider.Request(context.Background(), provider.RequestArguments{Method: "eth_requestAccounts"})
	s.Require().NoError(err)
	s.Require().Equal([]string{s.address.Hex()}, accounts)
}

func (s *ConnectorSuite) TestRequestAccountsAndSign() {
	s.requestAccounts()
	s.Require().Equal("0x1", s.provider.State().ChainID)
	s.Require().Equal("https://mainnet.example", s.provider.State().ProviderURL)

	session, err := s.api.Session(testTabID)
	s.Require().NoError(err)
	s.Require().Equal(testOrigin, session.Origin)
	s.Require().Equal(s.address, *session.Account)

	signature, err := s.provider.Request(context.Background(), provider.RequestArguments{
		Method: "personal_sign",
		Params: []interface{}{"hello", s.address.Hex()},
	})
	s.Require().NoError(err)

	expected, err := account.SignPersonalMessage(context.Background(), s.signer, s.address, []byte("hello"))
	s.Require().NoError(err)
	s.Require().Equal(expected.String(), signature)

	s.Require().Eventually(func() bool {
		return s.seen(signal.EventConnectorDAppPermissionGranted) && s.seen(signal.EventConnectorDAppRequestResolved)
	}, time.Second, 10*time.Millisecond)
	s.Require().Empty(s.api.PendingRequests())
}

func (s *ConnectorSuite) TestRejectedRequest() {
	s.requestAccounts()
	s.setApprove(false)

	_, err := s.provider.Request(context.Background(), provider.RequestArguments{
		Method: "personal_sign",
		Params: []interface{}{"0x68656c6c6f", s.address.Hex()},
	})
	s.Require().ErrorIs(err, provider.ErrUserRejected)
	s.Require().Equal(int64(4001), int64(provider.ToProviderError(err).Code))
	s.Require().Empty(s.api.PendingRequests())
}

func (s *ConnectorSuite) TestSwitchChainFromWallet() {
	s.requestAccounts()

	s.Require().NoError(s.client.Call(nil, "connector_switchChain", testTabID, hexutil.Uint64(5)))
	s.Require().Eventually(func() bool {
		state := s.provider.State()
		return state.ChainID == "0x5" && state.ProviderURL == "https://goerli.example"
	}, time.Second, 10*time.Millisecond)

	var session dispatcher.Session
	s.Require().NoError(s.client.Call(&session, "connector_session", testTabID))
	s.Require().Equal(uint64(5), session.ChainID)
}

func (s *ConnectorSuite) TestDisconnectFromWallet() {
	s.requestAccounts()

	s.Require().NoError(s.api.Disconnect(context.Background(), testTabID))
	s.Require().Eventually(func() bool { return s.provider.State().PublicKey == nil }, time.Second, 10*time.Millisecond)
	s.Require().True(s.seen(signal.EventConnectorDAppPermissionRevoked))

	_, err := s.api.Session(testTabID)
	s.Require().ErrorIs(err, dispatcher.ErrSessionNotFound)

	_, err = s.provider.Request(context.Background(), provider.RequestArguments{
		Method: "personal_sign",
		Params: []interface{}{"0x68656c6c6f", s.address.Hex()},
	})
	s.Require().ErrorIs(err, provider.ErrWalletNotConnected)
}

func (s *ConnectorSuite) TestNetworks() {
	var networks []params.Network
	s.Require().NoError(s.client.Call(&networks, "connector_networks"))
	s.Require().Len(networks, 2)
	s.Require().Equal(uint64(1), networks[0].ChainID)
}

func (s *ConnectorSuite) TestUnknownRequest() {
	err := s.api.Confirm(context.Background(), dispatcher.ConfirmArgs{RequestID: "missing"})
	s.Require().ErrorIs(err, dispatcher.ErrRequestNotFound)

	err = s.client.Call(nil, "connector_reject", "missing")
	s.Require().Error(err)
}
