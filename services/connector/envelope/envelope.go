package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/status-im/connector-bridge/transactions"
)

var (
	ErrMissingRequestID  = errors.New("missing requestId")
	ErrUnknownType       = errors.New("unknown envelope type")
	ErrMissingField      = errors.New("missing required field")
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// Request is the message a page sends to ask the wallet for something.
type Request struct {
	Type        RequestType              `json:"type"`
	RequestID   string                   `json:"requestId"`
	ChainID     string                   `json:"chainId,omitempty"`
	MessageHex  string                   `json:"messageHex,omitempty"`
	TypedData   json.RawMessage          `json:"typedData,omitempty"`
	Transaction *transactions.SendTxArgs `json:"transaction,omitempty"`
}

// Response answers exactly one Request, matched by RequestID.
type Response struct {
	Type                  ResponseType       `json:"type"`
	RequestID             string             `json:"requestId"`
	ProviderURL           string             `json:"providerUrl,omitempty"`
	AccountAddress        *common.Address    `json:"accountAddress,omitempty"`
	ChainID               string             `json:"chainId,omitempty"`
	Signature             hexutil.Bytes      `json:"signature,omitempty"`
	SignedTransactionHash hexutil.Bytes      `json:"signedTransactionHash,omitempty"`
	Transaction           *types.Transaction `json:"transaction,omitempty"`
}

// Notification is pushed by the wallet without a preceding request.
type Notification struct {
	Type        NotificationType `json:"type"`
	ChainID     string           `json:"chainId,omitempty"`
	ProviderURL string           `json:"providerUrl,omitempty"`
}

// NewRequest creates a request of type t with a fresh id.
func NewRequest(t RequestType) *Request {
	return &Request{
		Type:      t,
		RequestID: uuid.NewString(),
	}
}

func NewConnectRequest(chainID string) *Request {
	req := NewRequest(Connect)
	req.ChainID = chainID
	return req
}

func NewChangeChainRequest(chainID string) *Request {
	req := NewRequest(ChangeChain)
	req.ChainID = chainID
	return req
}

func NewSignMessageRequest(messageHex string) *Request {
	req := NewRequest(SignMessage)
	req.MessageHex = messageHex
	return req
}

func NewSignTypedDataRequest(typedData json.RawMessage) *Request {
	req := NewRequest(SignTypedData)
	req.TypedData = typedData
	return req
}

func NewTransactionRequest(t RequestType, tx transactions.SendTxArgs) *Request {
	req := NewRequest(t)
	req.Transaction = &tx
	return req
}

// NewResponse creates an empty response of type t for requestID.
func NewResponse(t ResponseType, requestID string) *Response {
	return &Response{
		Type:      t,
		RequestID: requestID,
	}
}

// NewRejection creates the universal rejection for requestID.
func NewRejection(requestID string) *Response {
	return NewResponse(TransactionRejected, requestID)
}

// Rejected reports whether the response is the universal rejection.
func (r *Response) Rejected() bool {
	return r.Type == TransactionRejected
}

// Validate checks that the request carries the fields its type requires.
func (r *Request) Validate() error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := validate(requestSchema, data); err != nil {
		return err
	}
	return r.validateFields(data)
}

// validateFields applies the schema of r's type to its wire form, then the checks a
// schema cannot express.
func (r *Request) validateFields(data []byte) error {
	if err := validate(requestTypeSchemas[r.Type], data); err != nil {
		return err
	}

	switch r.Type {
	case Connect, ChangeChain:
		if _, err := hexutil.DecodeUint64(r.ChainID); err != nil {
			return fmt.Errorf("%w: chainId: %v", ErrMalformedEnvelope, err)
		}
	case SignMessage:
		if _, err := hexutil.Decode(r.MessageHex); err != nil {
			return fmt.Errorf("%w: messageHex: %v", ErrMalformedEnvelope, err)
		}
	}
	return nil
}

// DecodeRequest parses and validates a request envelope.
func DecodeRequest(data []byte) (*Request, error) {
	if err := validate(requestSchema, data); err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := req.validateFields(data); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeResponse parses a response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	if err := validate(responseSchema, data); err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return &resp, nil
}

// DecodeNotification parses a wallet notification.
func DecodeNotification(data []byte) (*Notification, error) {
	tag, ok := tagFromJSON(data)
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	schema, ok := notificationSchemas[NotificationType(tag)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	if err := validate(schema, data); err != nil {
		return nil, err
	}

	var notification Notification
	if err := json.Unmarshal(data, &notification); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if notification.Type == ChainSwitched {
		if _, err := hexutil.DecodeUint64(notification.ChainID); err != nil {
			return nil, fmt.Errorf("%w: chainId: %v", ErrMalformedEnvelope, err)
		}
	}
	return &notification, nil
}
