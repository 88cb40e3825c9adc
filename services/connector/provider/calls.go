package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/status-im/connector-bridge/services/connector/envelope"
	"github.com/status-im/connector-bridge/transactions"
)

// call is one parsed provider method. The set of implementations is the set of
// supported methods; parseCall is the only place that creates them.
type call interface {
	run(ctx context.Context, p *Provider) (interface{}, error)
}

type (
	accountsCall        struct{}
	requestAccountsCall struct{}
	chainIDCall         struct{}
	netVersionCall      struct{}
	queryCall           struct {
		method string
		params []interface{}
	}
	ethSignCall      struct{}
	personalSignCall struct {
		messageHex string
		address    *common.Address
	}
	signTypedDataCall struct {
		address   common.Address
		typedData json.RawMessage
	}
	signTransactionCall struct {
		tx transactions.SendTxArgs
	}
	sendTransactionCall struct {
		tx transactions.SendTxArgs
	}
	switchChainCall struct {
		chainID string
	}
)

// queryMethods are answered by the node behind the current provider URL.
var queryMethods = map[string]struct{}{
	"eth_getBalance":            {},
	"eth_getCode":               {},
	"eth_getStorageAt":          {},
	"eth_getTransactionCount":   {},
	"eth_blockNumber":           {},
	"eth_getBlockByNumber":      {},
	"eth_call":                  {},
	"eth_gasPrice":              {},
	"eth_estimateGas":           {},
	"eth_getTransactionByHash":  {},
	"eth_getTransactionReceipt": {},
}

// normalizeParams checks the params shape and returns params as a positional list.
// An object is passed as the only positional parameter.
func validateMethod(method string) error {
	if strings.TrimSpace(method) == "" {
		return fmt.Errorf("%w: method must be a non-empty string", ErrInvalidRequest)
	}
	return nil
}

// refusedCall returns the call of methods that are refused whatever their params are.
func refusedCall(method string) (call, bool) {
	if method == "eth_sign" {
		return ethSignCall{}, true
	}
	return nil, false
}

func normalizeParams(args RequestArguments) ([]interface{}, error) {
	switch params := args.Params.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return params, nil
	case map[string]interface{}:
		return []interface{}{params}, nil
	default:
		return nil, fmt.Errorf("%w: params must be an array or an object", ErrInvalidRequest)
	}
}

func parseCall(method string, params []interface{}) (call, error) {
	if _, ok := queryMethods[method]; ok {
		return queryCall{method: method, params: params}, nil
	}

	switch method {
	case "eth_accounts":
		return accountsCall{}, nil
	case "eth_requestAccounts":
		return requestAccountsCall{}, nil
	case "eth_chainId":
		return chainIDCall{}, nil
	case "net_version":
		return netVersionCall{}, nil
	case "eth_sign":
		return ethSignCall{}, nil
	case "personal_sign":
		return parsePersonalSign(params)
	case "eth_signTypedData_v4":
		return parseSignTypedData(params)
	case "eth_signTransaction":
		tx, err := parseTransaction(params)
		if err != nil {
			return nil, err
		}
		return signTransactionCall{tx: tx}, nil
	case "eth_sendTransaction":
		tx, err := parseTransaction(params)
		if err != nil {
			return nil, err
		}
		return sendTransactionCall{tx: tx}, nil
	case "wallet_switchEthereumChain":
		return parseSwitchChain(params)
	}
	return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, method)
}

func invalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

func parseAddress(value interface{}) (common.Address, bool) {
	s, ok := value.(string)
	if !ok || !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// personal_sign takes [message, address]. Messages that are not 0x-hex are signed as
// their UTF-8 bytes.
func parsePersonalSign(params []interface{}) (call, error) {
	if len(params) < 1 {
		return nil, invalidParams("personal_sign expects [message, address]")
	}
	message, ok := params[0].(string)
	if !ok {
		return nil, invalidParams("personal_sign message must be a string")
	}

	c := personalSignCall{messageHex: message}
	if _, err := hexutil.Decode(message); err != nil {
		c.messageHex = hexutil.Encode([]byte(message))
	}
	if len(params) > 1 {
		address, ok := parseAddress(params[1])
		if !ok {
			return nil, invalidParams("personal_sign address is invalid")
		}
		c.address = &address
	}
	return c, nil
}

// eth_signTypedData_v4 takes [address, typedData] where typedData is a JSON string or object.
func parseSignTypedData(params []interface{}) (call, error) {
	if len(params) != 2 {
		return nil, invalidParams("eth_signTypedData_v4 expects [address, typedData]")
	}
	address, ok := parseAddress(params[0])
	if !ok {
		return nil, invalidParams("eth_signTypedData_v4 address is invalid")
	}

	var typedData json.RawMessage
	switch data := params[1].(type) {
	case string:
		if !json.Valid([]byte(data)) {
			return nil, invalidParams("eth_signTypedData_v4 typed data is not JSON")
		}
		typedData = json.RawMessage(data)
	case map[string]interface{}:
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, invalidParams("eth_signTypedData_v4 typed data: %v", err)
		}
		typedData = encoded
	default:
		return nil, invalidParams("eth_signTypedData_v4 typed data must be a string or an object")
	}
	return signTypedDataCall{address: address, typedData: typedData}, nil
}

func parseTransaction(params []interface{}) (transactions.SendTxArgs, error) {
	if len(params) != 1 {
		return transactions.SendTxArgs{}, invalidParams("expected a single transaction object")
	}
	if _, ok := params[0].(map[string]interface{}); !ok {
		return transactions.SendTxArgs{}, invalidParams("transaction must be an object")
	}
	tx, err := transactions.RPCCalltoSendTxArgs(params...)
	if err != nil {
		return transactions.SendTxArgs{}, invalidParams("transaction: %v", err)
	}
	if !tx.Valid() {
		return transactions.SendTxArgs{}, invalidParams("%v", transactions.ErrInvalidSendTxArgs)
	}
	return tx, nil
}

// wallet_switchEthereumChain takes [{chainId}].
func parseSwitchChain(params []interface{}) (call, error) {
	if len(params) != 1 {
		return nil, invalidParams("wallet_switchEthereumChain expects [{chainId}]")
	}
	object, ok := params[0].(map[string]interface{})
	if !ok {
		return nil, invalidParams("wallet_switchEthereumChain expects [{chainId}]")
	}
	chainID, ok := object["chainId"].(string)
	if !ok {
		return nil, invalidParams("chainId must be a hex string")
	}
	if _, err := hexutil.DecodeUint64(chainID); err != nil {
		return nil, invalidParams("chainId: %v", err)
	}
	return switchChainCall{chainID: chainID}, nil
}

func (accountsCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	return p.State().Accounts(), nil
}

func (requestAccountsCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	if current := p.State(); current.PublicKey != nil {
		return current.Accounts(), nil
	}

	resp, err := p.roundTrip(ctx, envelope.NewRequest(envelope.GetAccount))
	if err != nil {
		return nil, err
	}
	if resp.AccountAddress == nil {
		return nil, ErrUnexpectedResponse
	}

	previous := p.State()
	next := State{
		IsConnected: true,
		ChainID:     resp.ChainID,
		PublicKey:   resp.AccountAddress,
		ProviderURL: resp.ProviderURL,
	}
	if next.ChainID == "" {
		next.ChainID = previous.ChainID
	}
	if next.ProviderURL == "" {
		next.ProviderURL = previous.ProviderURL
	}
	p.setState(next)

	if !previous.IsConnected {
		p.emitConnect(next.ChainID)
	} else if previous.ChainID != next.ChainID {
		p.emitChainChanged(next.ChainID)
	}
	p.emitAccountsChanged([]common.Address{*resp.AccountAddress})

	return next.Accounts(), nil
}

func (chainIDCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	if chainID := p.State().ChainID; chainID != "" {
		return chainID, nil
	}
	return p.defaultChainID, nil
}

func (netVersionCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	state := p.State()
	if state.ChainID == "" {
		state.ChainID = p.defaultChainID
	}
	return state.NetVersion(), nil
}

func (c queryCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	client, err := p.queryClient(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	if err := client.CallContext(ctx, &result, c.method, c.params...); err != nil {
		return nil, queryError(c.method, err)
	}
	return result, nil
}

func (ethSignCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	return nil, ErrEthSignUnsupported
}

func (c personalSignCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	account, err := p.requireAccount()
	if err != nil {
		return nil, err
	}
	if c.address != nil && *c.address != account {
		return nil, ErrUnauthorizedAccount
	}

	resp, err := p.roundTrip(ctx, envelope.NewSignMessageRequest(c.messageHex))
	if err != nil {
		return nil, err
	}
	return resp.Signature.String(), nil
}

func (c signTypedDataCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	account, err := p.requireAccount()
	if err != nil {
		return nil, err
	}
	if c.address != account {
		return nil, ErrUnauthorizedAccount
	}

	resp, err := p.roundTrip(ctx, envelope.NewSignTypedDataRequest(c.typedData))
	if err != nil {
		return nil, err
	}
	return resp.Signature.String(), nil
}

// fromConnected fills in or checks the sender of a dApp transaction.
func fromConnected(tx transactions.SendTxArgs, account common.Address) (transactions.SendTxArgs, error) {
	if tx.From == (common.Address{}) {
		tx.From = account
	}
	if tx.From != account {
		return tx, ErrUnauthorizedAccount
	}
	return tx, nil
}

func (c signTransactionCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	account, err := p.requireAccount()
	if err != nil {
		return nil, err
	}
	tx, err := fromConnected(c.tx, account)
	if err != nil {
		return nil, err
	}

	resp, err := p.roundTrip(ctx, envelope.NewTransactionRequest(envelope.SignTransaction, tx))
	if err != nil {
		return nil, err
	}
	if len(resp.SignedTransactionHash) == 0 {
		return nil, ErrUnexpectedResponse
	}
	return resp.SignedTransactionHash.String(), nil
}

func (c sendTransactionCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	account, err := p.requireAccount()
	if err != nil {
		return nil, err
	}
	tx, err := fromConnected(c.tx, account)
	if err != nil {
		return nil, err
	}

	resp, err := p.roundTrip(ctx, envelope.NewTransactionRequest(envelope.SendTransaction, tx))
	if err != nil {
		return nil, err
	}
	if resp.Transaction == nil {
		return nil, ErrUnexpectedResponse
	}
	return resp.Transaction.Hash().Hex(), nil
}

func (c switchChainCall) run(ctx context.Context, p *Provider) (interface{}, error) {
	if _, err := p.requireAccount(); err != nil {
		return nil, err
	}

	resp, err := p.roundTrip(ctx, envelope.NewChangeChainRequest(c.chainID))
	if err != nil {
		return nil, err
	}

	chainID := resp.ChainID
	if chainID == "" {
		chainID = c.chainID
	}
	p.SwitchChain(chainID, resp.ProviderURL)
	return nil, nil
}
