package channel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/event"
)

var (
	ErrClosed       = errors.New("channel closed")
	ErrNotConnected = errors.New("channel not connected")
)

// Message is what travels over a channel: the raw envelope plus the identity of the
// sender as the receiving side observes it (a window id, a tab id).
type Message struct {
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

// NewMessage marshals payload into a message posted by source.
func NewMessage(source string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Source: source, Data: data}, nil
}

// Channel is a duplex message bus. Every subscriber sees every message posted after it
// subscribed; filtering is the subscriber's job.
type Channel interface {
	Post(ctx context.Context, msg Message) error
	// Subscribe delivers messages to ch until the subscription is cancelled. ch should be
	// buffered; a slow subscriber delays delivery to everyone else.
	Subscribe(ch chan<- Message) event.Subscription
}
