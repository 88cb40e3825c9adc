package dispatcher

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/status-im/connector-bridge/account"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector/chainutils"
	"github.com/status-im/connector-bridge/services/connector/envelope"
	"github.com/status-im/connector-bridge/signal"
	"github.com/status-im/connector-bridge/transactions"
)

// operate performs the wallet side effect of item and builds its response.
func (d *Dispatcher) operate(ctx context.Context, item *PendingItem) (*envelope.Response, error) {
	switch item.Request.Type {
	case envelope.Connect:
		return d.connect(item)
	case envelope.GetAccount:
		return d.getAccount(item)
	case envelope.ChangeChain:
		return d.changeChain(item)
	case envelope.SignMessage:
		return d.signMessage(ctx, item)
	case envelope.SignTypedData:
		return d.signTypedData(ctx, item)
	case envelope.SignTransaction:
		return d.signTransaction(ctx, item)
	case envelope.SendTransaction:
		return d.sendTransaction(ctx, item)
	}
	return nil, fmt.Errorf("%w: %q", envelope.ErrUnknownType, item.Request.Type)
}

func (d *Dispatcher) connect(item *PendingItem) (*envelope.Response, error) {
	network, err := chainutils.FindActiveNetwork(d.networks, item.Request.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, item.Request.ChainID)
	}

	session := d.sessions.getOrNew(item.SenderTabID, item.Origin)
	session.ChainID = network.ChainID
	d.sessions.set(item.SenderTabID, session)

	resp := envelope.NewResponse(envelope.ConnectResponse, item.Request.RequestID)
	resp.ProviderURL = network.RPCURL
	return resp, nil
}

func (d *Dispatcher) getAccount(item *PendingItem) (*envelope.Response, error) {
	session := d.sessions.getOrNew(item.SenderTabID, item.Origin)
	address, err := d.selectAccount(item, session, nil)
	if err != nil {
		return nil, err
	}
	network, err := d.sessionNetwork(session)
	if err != nil {
		return nil, err
	}

	session.Account = &address
	session.ChainID = network.ChainID
	d.sessions.set(item.SenderTabID, session)

	chainID := chainutils.GetHexChainID(network.ChainID)
	signal.SendConnectorDAppPermissionGranted(item.Origin, item.SenderTabID, address.Hex(), chainID)

	resp := envelope.NewResponse(envelope.AccountResponse, item.Request.RequestID)
	resp.AccountAddress = &address
	resp.ChainID = chainID
	resp.ProviderURL = network.RPCURL
	return resp, nil
}

func (d *Dispatcher) changeChain(item *PendingItem) (*envelope.Response, error) {
	network, err := chainutils.FindActiveNetwork(d.networks, item.Request.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, item.Request.ChainID)
	}

	session := d.sessions.getOrNew(item.SenderTabID, item.Origin)
	session.ChainID = network.ChainID
	d.sessions.set(item.SenderTabID, session)

	chainID := chainutils.GetHexChainID(network.ChainID)
	signal.SendConnectorDAppChainIdSwitched(item.SenderTabID, chainID)

	resp := envelope.NewResponse(envelope.ChainChangeResponse, item.Request.RequestID)
	resp.ChainID = chainID
	resp.ProviderURL = network.RPCURL
	return resp, nil
}

func (d *Dispatcher) signMessage(ctx context.Context, item *PendingItem) (*envelope.Response, error) {
	address, err := d.selectAccount(item, d.sessions.getOrNew(item.SenderTabID, item.Origin), nil)
	if err != nil {
		return nil, err
	}
	message, err := hexutil.Decode(item.Request.MessageHex)
	if err != nil {
		return nil, fmt.Errorf("%w: messageHex: %v", envelope.ErrMalformedEnvelope, err)
	}

	signature, err := account.SignPersonalMessage(ctx, d.signer, address, message)
	if err != nil {
		return nil, err
	}
	resp := envelope.NewResponse(envelope.SignMessageResponse, item.Request.RequestID)
	resp.Signature = signature
	return resp, nil
}

func (d *Dispatcher) signTypedData(ctx context.Context, item *PendingItem) (*envelope.Response, error) {
	address, err := d.selectAccount(item, d.sessions.getOrNew(item.SenderTabID, item.Origin), nil)
	if err != nil {
		return nil, err
	}

	signature, err := account.SignTypedData(ctx, d.signer, address, item.Request.TypedData)
	if err != nil {
		return nil, err
	}
	resp := envelope.NewResponse(envelope.SignTypedDataResponse, item.Request.RequestID)
	resp.Signature = signature
	return resp, nil
}

func (d *Dispatcher) signTransaction(ctx context.Context, item *PendingItem) (*envelope.Response, error) {
	session := d.sessions.getOrNew(item.SenderTabID, item.Origin)
	args, chainID, err := d.transactionArgs(item, session)
	if err != nil {
		return nil, err
	}
	client, err := d.clients.EthClient(ctx, chainID)
	if err != nil {
		return nil, err
	}

	tx, err := d.transactor.SignTransaction(ctx, client, chainID, args, d.signer)
	if err != nil {
		return nil, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}

	resp := envelope.NewResponse(envelope.SignTransactionResponse, item.Request.RequestID)
	resp.SignedTransactionHash = raw
	return resp, nil
}

func (d *Dispatcher) sendTransaction(ctx context.Context, item *PendingItem) (*envelope.Response, error) {
	session := d.sessions.getOrNew(item.SenderTabID, item.Origin)
	args, chainID, err := d.transactionArgs(item, session)
	if err != nil {
		return nil, err
	}
	client, err := d.clients.EthClient(ctx, chainID)
	if err != nil {
		return nil, err
	}

	tx, err := d.transactor.SendTransaction(ctx, client, chainID, args, d.signer)
	if err != nil {
		return nil, err
	}

	resp := envelope.NewResponse(envelope.SendTransactionResponse, item.Request.RequestID)
	resp.Transaction = tx
	return resp, nil
}

// transactionArgs binds the request's transaction to the selected account and the
// tab's chain.
func (d *Dispatcher) transactionArgs(item *PendingItem, session Session) (args transactions.SendTxArgs, chainID uint64, err error) {
	args = *item.Request.Transaction

	var from *common.Address
	if args.From != (common.Address{}) {
		from = &args.From
	}
	address, err := d.selectAccount(item, session, from)
	if err != nil {
		return args, 0, err
	}
	if from != nil && *from != address {
		return args, 0, ErrAccountMismatch
	}
	args.From = address

	network, err := d.sessionNetwork(session)
	if err != nil {
		return args, 0, err
	}
	return args, network.ChainID, nil
}

// selectAccount picks, in order: the account chosen at confirm time, the hint carried by
// the request, the tab's shared account, the signer's only account.
func (d *Dispatcher) selectAccount(item *PendingItem, session Session, hint *common.Address) (common.Address, error) {
	var address common.Address
	switch {
	case item.Account != nil:
		address = *item.Account
	case hint != nil:
		address = *hint
	case session.Account != nil:
		address = *session.Account
	default:
		accounts := d.signer.Accounts()
		if len(accounts) != 1 {
			return common.Address{}, ErrAccountRequired
		}
		address = accounts[0]
	}

	if !account.HasAccount(d.signer, address) {
		return common.Address{}, fmt.Errorf("%w: %s", account.ErrAddressToAccountMappingFailure, address.Hex())
	}
	item.Account = &address
	return address, nil
}

// sessionNetwork is the tab's chain, or the default chain when none was selected yet.
func (d *Dispatcher) sessionNetwork(session Session) (*params.Network, error) {
	chainID := session.ChainID
	if chainID == 0 {
		defaultChainID, err := chainutils.GetDefaultChainID(d.networks)
		if err != nil {
			return nil, err
		}
		chainID = defaultChainID
	}

	network, err := chainutils.FindActiveNetworkByID(d.networks, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, chainutils.GetHexChainID(chainID))
	}
	return network, nil
}
