package provider

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/status-im/connector-bridge/common"
	perrors "github.com/status-im/connector-bridge/errors"
)

const jsonrpcVersion = "2.0"

// JSONRPCRequest is the payload of the legacy sendAsync and of raw JSON calls.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  interface{}     `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      json.RawMessage        `json:"id,omitempty"`
	Result  interface{}            `json:"result,omitempty"`
	Error   *perrors.ProviderError `json:"error,omitempty"`
}

func (p *Provider) handle(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	resp := &JSONRPCResponse{JSONRPC: jsonrpcVersion, ID: req.ID}
	result, err := p.Request(ctx, RequestArguments{Method: req.Method, Params: req.Params})
	if err != nil {
		resp.Error = ToProviderError(err)
		return resp
	}
	if result == nil {
		// "result" must be present on success, even when it is null.
		result = json.RawMessage("null")
	}
	resp.Result = result
	return resp
}

// HandleJSON answers one JSON encoded JSON-RPC request. It never fails: errors are
// reported in the response body.
func (p *Provider) HandleJSON(ctx context.Context, data []byte) []byte {
	var req JSONRPCRequest
	var resp *JSONRPCResponse
	if err := json.Unmarshal(data, &req); err != nil {
		resp = &JSONRPCResponse{JSONRPC: jsonrpcVersion, Error: ErrInvalidRequest}
	} else {
		resp = p.handle(ctx, req)
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		p.logger.Error("failed to encode response", zap.String("method", req.Method), zap.Error(err))
		encoded, _ = json.Marshal(&JSONRPCResponse{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Error:   perrors.New(perrors.CodeInternal, err.Error()),
		})
	}
	return encoded
}

// SendAsync is the legacy callback form of Request. callback runs on its own goroutine.
func (p *Provider) SendAsync(ctx context.Context, req JSONRPCRequest, callback func(*JSONRPCResponse)) {
	go func() {
		defer common.LogOnPanic()
		callback(p.handle(ctx, req))
	}()
}
