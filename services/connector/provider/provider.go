package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	perrors "github.com/status-im/connector-bridge/errors"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/correlator"
	"github.com/status-im/connector-bridge/services/connector/envelope"
)

// DialFunc opens the JSON-RPC client used for read-only queries.
type DialFunc func(ctx context.Context, url string) (*rpc.Client, error)

type Config struct {
	// Channel is the page window the provider posts requests on.
	Channel channel.Channel
	// Source identifies the page window on Channel.
	Source string
	// Timeout bounds each wallet round trip, correlator.DefaultTimeout when zero.
	Timeout time.Duration
	// DefaultChainID is requested by Connect before any chain was selected.
	DefaultChainID string
	// Dial defaults to rpc.DialContext.
	Dial   DialFunc
	Logger *zap.Logger
}

// Provider is the object page code talks to. It turns method calls into wallet round
// trips or node queries and keeps the page's view of the connection.
type Provider struct {
	ch             channel.Channel
	source         string
	timeout        time.Duration
	defaultChainID string
	dial           DialFunc
	logger         *zap.Logger

	state atomic.Pointer[State]

	listenersMu    sync.RWMutex
	listeners      map[int]Listener
	nextListenerID int

	clientMu  sync.Mutex
	client    *rpc.Client
	clientURL string
}

func New(config Config) *Provider {
	p := &Provider{
		ch:             config.Channel,
		source:         config.Source,
		timeout:        config.Timeout,
		defaultChainID: config.DefaultChainID,
		dial:           config.Dial,
		logger:         config.Logger,
		listeners:      make(map[int]Listener),
	}
	if p.dial == nil {
		p.dial = rpc.DialContext
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.Named("connector.provider")
	if p.timeout <= 0 {
		p.timeout = correlator.DefaultTimeout
	}
	p.setState(State{})
	return p
}

// RequestArguments is the single argument of request().
type RequestArguments struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Request is the EIP-1193 entry point. Malformed calls fail before anything is sent.
func (p *Provider) Request(ctx context.Context, args RequestArguments) (interface{}, error) {
	if err := validateMethod(args.Method); err != nil {
		return nil, err
	}

	c, refused := refusedCall(args.Method)
	if !refused {
		params, err := normalizeParams(args)
		if err != nil {
			return nil, err
		}
		if c, err = parseCall(args.Method, params); err != nil {
			return nil, err
		}
	}

	result, err := c.run(ctx, p)
	if err != nil {
		p.logger.Debug("request failed", zap.String("method", args.Method), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Enable is the legacy alias of eth_requestAccounts.
func (p *Provider) Enable(ctx context.Context) (interface{}, error) {
	return p.Request(ctx, RequestArguments{Method: "eth_requestAccounts"})
}

// Send is the legacy synchronous alias of Request.
func (p *Provider) Send(ctx context.Context, method string, params interface{}) (interface{}, error) {
	return p.Request(ctx, RequestArguments{Method: method, Params: params})
}

// Connect asks the wallet for a provider URL of the current (or default) chain and marks
// the provider connected.
func (p *Provider) Connect(ctx context.Context) error {
	current := p.State()
	chainID := current.ChainID
	if chainID == "" {
		chainID = p.defaultChainID
	}

	req := envelope.NewConnectRequest(chainID)
	if err := req.Validate(); err != nil {
		return ErrInvalidParams
	}
	resp, err := p.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	next := p.State()
	wasConnected := next.IsConnected
	next.IsConnected = true
	next.ChainID = chainID
	next.ProviderURL = resp.ProviderURL
	p.setState(next)

	if !wasConnected {
		p.emitConnect(chainID)
	}
	return nil
}

// Disconnect is wallet initiated: the dApp loses access to the account.
func (p *Provider) Disconnect() {
	next := p.State()
	next.PublicKey = nil
	p.setState(next)
	p.emitAccountsChanged([]common.Address{})
}

// SwitchChain is wallet initiated: the user picked another chain for this dApp.
func (p *Provider) SwitchChain(chainID, providerURL string) {
	next := p.State()
	changed := next.ChainID != chainID
	next.ChainID = chainID
	next.ProviderURL = providerURL
	p.setState(next)
	if changed {
		p.emitChainChanged(chainID)
	}
}

// Close tears the provider down and tells listeners it is gone.
func (p *Provider) Close() {
	p.setState(State{})

	p.clientMu.Lock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
		p.clientURL = ""
	}
	p.clientMu.Unlock()

	p.emitDisconnect(perrors.New(perrors.CodeDisconnected, ErrProviderDisconnected.Message))
}

// roundTrip sends req through the correlator and maps its outcome to page facing errors.
func (p *Provider) roundTrip(ctx context.Context, req *envelope.Request) (*envelope.Response, error) {
	expected, _ := envelope.ExpectedResponse(req.Type)
	resp, err := correlator.Send(ctx, p.ch, p.source, req, expected, p.timeout)
	if err != nil {
		p.logger.Debug("round trip failed",
			zap.String("type", string(req.Type)),
			zap.String("requestId", req.RequestID),
			zap.Error(err))
		return nil, roundTripError(err)
	}
	return resp, nil
}

// requireAccount gates every method that acts on behalf of the connected account.
func (p *Provider) requireAccount() (common.Address, error) {
	state := p.State()
	if state.PublicKey == nil {
		return common.Address{}, ErrWalletNotConnected
	}
	return *state.PublicKey, nil
}

// queryClient returns a client bound to the current provider URL, redialing after a
// chain switch.
func (p *Provider) queryClient(ctx context.Context) (*rpc.Client, error) {
	url := p.State().ProviderURL
	if url == "" {
		return nil, ErrProviderDisconnected
	}

	p.clientMu.Lock()
	defer p.clientMu.Unlock()

	if p.client != nil && p.clientURL == url {
		return p.client, nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}

	client, err := p.dial(ctx, url)
	if err != nil {
		return nil, perrors.New(perrors.CodeChainDisconnected, err.Error())
	}
	p.client = client
	p.clientURL = url
	return client, nil
}
