package correlator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/envelope"
)

// DefaultTimeout leaves room for a human to review the request.
const DefaultTimeout = time.Hour

const incomingBuffer = 16

var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrUserRejected   = errors.New("user rejected the request")
	ErrChannelClosed  = errors.New("channel closed while waiting for response")
)

// Send posts req on ch as source and waits for the response carrying the same requestId
// with either the expected tag or TransactionRejected. Everything else seen on ch is
// ignored. A rejection is returned together with ErrUserRejected.
//
// timeout <= 0 means DefaultTimeout.
func Send(ctx context.Context, ch channel.Channel, source string, req *envelope.Request, expected envelope.ResponseType, timeout time.Duration) (*envelope.Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	// subscribe first, a fast answer must not slip through before we listen
	incoming := make(chan channel.Message, incomingBuffer)
	sub := ch.Subscribe(incoming)
	defer sub.Unsubscribe()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if err := ch.Post(ctx, channel.Message{Source: source, Data: data}); err != nil {
		return nil, fmt.Errorf("post %s request: %w", req.Type, err)
	}

	for {
		select {
		case msg := <-incoming:
			resp, ok := match(msg.Data, req.RequestID, expected)
			if !ok {
				continue
			}
			if resp.Rejected() {
				return resp, ErrUserRejected
			}
			return resp, nil
		case <-sub.Err():
			return nil, ErrChannelClosed
		case <-timer.C:
			return nil, fmt.Errorf("%w after %s", ErrRequestTimeout, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func match(data []byte, requestID string, expected envelope.ResponseType) (*envelope.Response, bool) {
	tag, ok := envelope.Tag(data)
	if !ok {
		return nil, false
	}
	if envelope.ResponseType(tag) != expected && envelope.ResponseType(tag) != envelope.TransactionRejected {
		return nil, false
	}
	if id, ok := envelope.RequestID(data); !ok || id != requestID {
		return nil, false
	}
	resp, err := envelope.DecodeResponse(data)
	if err != nil {
		return nil, false
	}
	return resp, true
}
