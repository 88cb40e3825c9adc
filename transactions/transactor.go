package transactions

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	ethereum "github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/account"
)

const (
	defaultRPCCallTimeout = 30 * time.Second

	defaultGas = 21000
)

// Transactor fills in, signs and propagates transactions requested by dApps.
// The chain is chosen per call, so one Transactor serves every connected tab.
type Transactor struct {
	rpcCallTimeout time.Duration
	nonce          *Nonce
	logger         *zap.Logger
}

// NewTransactor returns a new Transactor.
func NewTransactor(logger *zap.Logger) *Transactor {
	return &Transactor{
		rpcCallTimeout: defaultRPCCallTimeout,
		nonce:          NewNonce(),
		logger:         logger.Named("transactor"),
	}
}

// SetRPCCallTimeout bounds each upstream call made while filling in a transaction.
func (t *Transactor) SetRPCCallTimeout(timeout time.Duration) {
	t.rpcCallTimeout = timeout
}

// SignTransaction is an implementation of eth_signTransaction. The transaction is filled in and
// signed, but not propagated, so the local nonce is left untouched.
func (t *Transactor) SignTransaction(ctx context.Context, rpcClient *rpc.Client, chainID uint64, args SendTxArgs, signer account.Signer) (*gethtypes.Transaction, error) {
	wrapper := newRPCWrapper(rpcClient, chainID)
	if err := t.validate(args, signer); err != nil {
		return nil, err
	}

	nonce, unlock, err := t.nonce.Next(ctx, wrapper, args.From)
	if err != nil {
		return nil, err
	}
	defer unlock(false, 0)

	if args.Nonce != nil {
		nonce = uint64(*args.Nonce)
	}
	return t.fillAndSign(ctx, wrapper, nonce, args, signer)
}

// SendTransaction is an implementation of eth_sendTransaction. It returns the signed transaction
// that was accepted by the upstream node.
func (t *Transactor) SendTransaction(ctx context.Context, rpcClient *rpc.Client, chainID uint64, args SendTxArgs, signer account.Signer) (tx *gethtypes.Transaction, err error) {
	wrapper := newRPCWrapper(rpcClient, chainID)
	if err = t.validate(args, signer); err != nil {
		return nil, err
	}

	nonce, unlock, err := t.nonce.Next(ctx, wrapper, args.From)
	if err != nil {
		return nil, err
	}
	if args.Nonce != nil {
		nonce = uint64(*args.Nonce)
	}
	defer func() {
		unlock(err == nil, nonce)
	}()

	tx, err = t.fillAndSign(ctx, wrapper, nonce, args, signer)
	if err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, t.rpcCallTimeout)
	defer cancel()
	if err = wrapper.SendTransaction(sendCtx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// make sure that only account which created the tx can complete it
func (t *Transactor) validate(args SendTxArgs, signer account.Signer) error {
	if signer == nil {
		return account.ErrNoAccountSelected
	}
	if !account.HasAccount(signer, args.From) {
		return ErrInvalidTxSender
	}
	if !args.Valid() {
		return ErrInvalidSendTxArgs
	}
	if args.GasPrice != nil && args.IsDynamicFeeTx() {
		return ErrMixedFeeFields
	}
	return nil
}

func (t *Transactor) fillAndSign(ctx context.Context, wrapper *rpcWrapper, nonce uint64, args SendTxArgs, signer account.Signer) (*gethtypes.Transaction, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.rpcCallTimeout)
	defer cancel()

	gasPrice := (*big.Int)(args.GasPrice)
	if !args.IsDynamicFeeTx() && args.GasPrice == nil {
		var err error
		gasPrice, err = wrapper.SuggestGasPrice(callCtx)
		if err != nil {
			return nil, err
		}
	}

	value := (*big.Int)(args.Value)
	if value == nil {
		value = new(big.Int)
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		msg := ethereum.CallMsg{
			From:  args.From,
			To:    args.To,
			Value: value,
			Data:  args.GetInput(),
		}
		if args.IsDynamicFeeTx() {
			msg.GasFeeCap = (*big.Int)(args.MaxFeePerGas)
			msg.GasTipCap = (*big.Int)(args.MaxPriorityFeePerGas)
		} else {
			msg.GasPrice = gasPrice
		}
		estimated, err := wrapper.EstimateGas(callCtx, msg)
		if err != nil {
			return nil, err
		}
		gas = estimated
		if gas < defaultGas {
			t.logger.Info("default gas will be used because estimated is lower", zap.Uint64("estimated", gas), zap.Uint64("default", defaultGas))
			gas = defaultGas
		}
	}

	chainID := new(big.Int).SetUint64(wrapper.chainID)
	tx := t.buildTransaction(chainID, nonce, value, gas, gasPrice, args)
	return signer.SignTx(ctx, args.From, tx, chainID)
}

func (t *Transactor) buildTransaction(chainID *big.Int, nonce uint64, value *big.Int, gas uint64, gasPrice *big.Int, args SendTxArgs) *gethtypes.Transaction {
	var txData gethtypes.TxData
	if args.IsDynamicFeeTx() {
		gasTipCap := (*big.Int)(args.MaxPriorityFeePerGas)
		gasFeeCap := (*big.Int)(args.MaxFeePerGas)
		if gasTipCap == nil {
			gasTipCap = new(big.Int)
		}
		if gasFeeCap == nil {
			gasFeeCap = new(big.Int).Set(gasTipCap)
		}

		txData = &gethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			Gas:       gas,
			GasTipCap: gasTipCap,
			GasFeeCap: gasFeeCap,
			To:        args.To,
			Value:     value,
			Data:      args.GetInput(),
		}
	} else {
		txData = &gethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       args.To,
			Value:    value,
			Data:     args.GetInput(),
		}
	}

	if args.To != nil {
		t.logNewTx(args, gas, gasPrice, value)
	} else {
		t.logNewContract(args, gas, gasPrice, value, nonce)
	}
	return gethtypes.NewTx(txData)
}

func (t *Transactor) logNewTx(args SendTxArgs, gas uint64, gasPrice *big.Int, value *big.Int) {
	t.logger.Info("New transaction",
		zap.Stringer("From", args.From),
		zap.Stringer("To", args.To),
		zap.Uint64("Gas", gas),
		zap.Stringer("GasPrice", gasPrice),
		zap.Stringer("Value", value),
	)
}

func (t *Transactor) logNewContract(args SendTxArgs, gas uint64, gasPrice *big.Int, value *big.Int, nonce uint64) {
	t.logger.Info("New contract",
		zap.Stringer("From", args.From),
		zap.Uint64("Gas", gas),
		zap.Stringer("GasPrice", gasPrice),
		zap.Stringer("Value", value),
		zap.Stringer("Contract address", crypto.CreateAddress(args.From, nonce)),
	)
}
