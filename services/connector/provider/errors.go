package provider

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	perrors "github.com/status-im/connector-bridge/errors"
	"github.com/status-im/connector-bridge/services/connector/correlator"
)

var (
	ErrInvalidRequest       = perrors.New(perrors.CodeInvalidRequest, "invalid request")
	ErrInvalidParams        = perrors.New(perrors.CodeInvalidParams, "invalid params")
	ErrWalletNotConnected   = perrors.New(perrors.CodeUnauthorized, "wallet not connected")
	ErrUnauthorizedAccount  = perrors.New(perrors.CodeUnauthorized, "requested account is not the connected one")
	ErrEthSignUnsupported   = perrors.New(perrors.CodeUnsupportedMethod, "eth_sign is not supported for security reasons, use personal_sign")
	ErrUserRejected         = perrors.New(perrors.CodeUserRejected, "user rejected the request")
	ErrRequestTimeout       = perrors.New(perrors.CodeInternal, "request timed out")
	ErrProviderDisconnected = perrors.New(perrors.CodeDisconnected, "provider is disconnected")
	ErrUnexpectedResponse   = perrors.New(perrors.CodeInternal, "unexpected response from wallet")
)

// roundTripError keeps the correlator error in the chain next to the page facing one.
func roundTripError(err error) error {
	switch {
	case errors.Is(err, correlator.ErrUserRejected):
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	case errors.Is(err, correlator.ErrRequestTimeout):
		return fmt.Errorf("%w: %w", ErrRequestTimeout, err)
	case errors.Is(err, correlator.ErrChannelClosed):
		return fmt.Errorf("%w: %w", ErrProviderDisconnected, err)
	}
	return err
}

// queryError keeps the code an upstream node attached to its error.
func queryError(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		providerErr := perrors.New(perrors.ErrorCode(rpcErr.ErrorCode()), rpcErr.Error())
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			providerErr.Data = dataErr.ErrorData()
		}
		return providerErr
	}
	return fmt.Errorf("%s: %w", method, err)
}

// ToProviderError converts any error returned by Request into the EIP-1193 shape.
func ToProviderError(err error) *perrors.ProviderError {
	return perrors.CreateProviderErrorFromError(err)
}
