package errors

import (
	"encoding/json"
	"errors"
)

// ErrorCode represents an EIP-1193 / JSON-RPC error code.
type ErrorCode int

const (
	CodeUserRejected       ErrorCode = 4001
	CodeUnauthorized       ErrorCode = 4100
	CodeUnsupportedMethod  ErrorCode = 4200
	CodeDisconnected       ErrorCode = 4900
	CodeChainDisconnected  ErrorCode = 4901
	CodeInvalidRequest     ErrorCode = -32600
	CodeMethodNotFound     ErrorCode = -32601
	CodeInvalidParams      ErrorCode = -32602
	CodeInternal           ErrorCode = -32603
	CodeResourceNotFound   ErrorCode = -32001
	CodeTransactionTimeout ErrorCode = -32002
)

// ProviderError is the error shape handed to page code. It is also the
// `error` member of a JSON-RPC response.
type ProviderError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New returns a ProviderError with the given code and message.
func New(code ErrorCode, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// Error implements the error interface for ProviderError.
func (e *ProviderError) Error() string {
	return e.Message
}

// Is reports errors with the same code as equal so that wrapped sentinels
// can be matched with errors.Is.
func (e *ProviderError) Is(target error) bool {
	var other *ProviderError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code && other.Message == e.Message
}

// JSON returns the error serialized as a JSON-RPC error object.
func (e *ProviderError) JSON() []byte {
	errorJSON, _ := json.Marshal(e)
	return errorJSON
}

// CreateProviderErrorFromError creates a ProviderError from a generic error.
// Errors that already carry a code keep it, everything else becomes an
// internal error.
func CreateProviderErrorFromError(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}
	return &ProviderError{
		Code:    CodeInternal,
		Message: err.Error(),
	}
}
